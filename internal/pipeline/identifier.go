package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Pair is one (city, state) unit of work.
type Pair struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// AllIdentifier names the output of a run spanning several states.
const AllIdentifier = "all"

// Identifier names the output of a run from the pairs it processed: one
// pair gives the city letters and digits joined with the state code,
// lowercased ("newyork_ny", "stlouis_mo"); several cities in one state give
// the state code ("NY"); anything else gives "all". The result only holds
// [a-z0-9_] or [A-Z0-9], so it is always a plain file name.
func Identifier(pairs []Pair) string {
	switch {
	case len(pairs) == 1:
		state := strings.ToLower(slug(pairs[0].State))
		city := strings.ToLower(slug(pairs[0].City))
		if city == "" {
			return strings.ToUpper(state)
		}
		return city + "_" + state
	case len(pairs) > 1 && singleState(pairs):
		return strings.ToUpper(slug(pairs[0].State))
	}
	return AllIdentifier
}

// slug keeps the ASCII letters and digits of s. Accents are folded first,
// so "Española" gives "Espanola".
func slug(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func singleState(pairs []Pair) bool {
	for _, p := range pairs[1:] {
		if !strings.EqualFold(p.State, pairs[0].State) {
			return false
		}
	}
	return true
}
