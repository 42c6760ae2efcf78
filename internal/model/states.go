package model

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// States maps two-letter state codes to the full names the listing source
// prints in addresses.
type States map[string]string

// Name returns the full name for a code. Lookup is case-insensitive on the
// code.
func (s States) Name(code string) (string, bool) {
	name, ok := s[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Codes returns the state codes in sorted order.
func (s States) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// DefaultStates returns the built-in table of US states and territories
// covered by the directory.
func DefaultStates() States {
	return States{
		"AK": "Alaska",
		"AL": "Alabama",
		"AR": "Arkansas",
		"AS": "American Samoa",
		"AZ": "Arizona",
		"CA": "California",
		"CO": "Colorado",
		"CT": "Connecticut",
		"DC": "District of Columbia",
		"DE": "Delaware",
		"FL": "Florida",
		"GA": "Georgia",
		"GU": "Guam",
		"HI": "Hawaii",
		"IA": "Iowa",
		"ID": "Idaho",
		"IL": "Illinois",
		"IN": "Indiana",
		"KS": "Kansas",
		"KY": "Kentucky",
		"LA": "Louisiana",
		"MA": "Massachusetts",
		"MD": "Maryland",
		"ME": "Maine",
		"MI": "Michigan",
		"MN": "Minnesota",
		"MO": "Missouri",
		"MP": "Northern Mariana Islands",
		"MS": "Mississippi",
		"MT": "Montana",
		"NA": "National",
		"NC": "North Carolina",
		"ND": "North Dakota",
		"NE": "Nebraska",
		"NH": "New Hampshire",
		"NJ": "New Jersey",
		"NM": "New Mexico",
		"NV": "Nevada",
		"NY": "New York",
		"OH": "Ohio",
		"OK": "Oklahoma",
		"OR": "Oregon",
		"PA": "Pennsylvania",
		"PR": "Puerto Rico",
		"RI": "Rhode Island",
		"SC": "South Carolina",
		"SD": "South Dakota",
		"TN": "Tennessee",
		"TX": "Texas",
		"UT": "Utah",
		"VA": "Virginia",
		"VI": "Virgin Islands",
		"VT": "Vermont",
		"WA": "Washington",
		"WI": "Wisconsin",
		"WV": "West Virginia",
		"WY": "Wyoming",
	}
}

// LoadStates reads a YAML mapping of code to name from path. Codes are
// upper-cased. An empty path returns DefaultStates.
func LoadStates(path string) (States, error) {
	if path == "" {
		return DefaultStates(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "states: read %s", path)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "states: parse %s", path)
	}
	if len(raw) == 0 {
		return nil, eris.Errorf("states: %s has no entries", path)
	}
	states := make(States, len(raw))
	for code, name := range raw {
		states[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(name)
	}
	return states, nil
}
