package extract

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseAddress splits a listing address into street and zipcode. The
// zipcode is the five digits following "<stateName>, "; the street is the
// text before "<city>, <stateName>" on the first line mentioning the city,
// or before the last occurrence of city when the state does not follow it.
// Either part is "" when its pattern does not match.
func ParseAddress(addr, city, stateName string) (street, zipcode string) {
	if stateName != "" {
		re := regexp.MustCompile(regexp.QuoteMeta(stateName) + `, (\d{5})`)
		if m := re.FindStringSubmatch(addr); m != nil {
			zipcode = m[1]
		}
	}

	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return "", zipcode
	}
	anchor := city + ", " + stateName
	for _, line := range strings.Split(addr, "\n") {
		if stateName != "" {
			if idx := strings.Index(line, anchor); idx >= 0 {
				return strings.TrimSpace(line[:idx]), zipcode
			}
		}
		if idx := strings.LastIndex(line, city); idx >= 0 {
			street = strings.TrimSpace(line[:idx])
			break
		}
	}
	return street, zipcode
}

var bracketed = regexp.MustCompile(`\[(.*)\]`)

// ParseCategories reads the bracketed category list of a category cell,
// e.g. "[ Bar, Eatery ]". Tokens are split on whitespace and stripped of
// commas.
func ParseCategories(cell string) ([]string, error) {
	m := bracketed.FindStringSubmatch(cell)
	if m == nil {
		return nil, eris.Wrapf(ErrMalformedCategory, "%q", cell)
	}
	cats := []string{}
	for _, tok := range strings.Fields(m[1]) {
		if tok = strings.Trim(tok, ","); tok != "" {
			cats = append(cats, tok)
		}
	}
	return cats, nil
}
