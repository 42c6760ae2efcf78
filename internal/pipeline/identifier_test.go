package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		pairs []Pair
		want  string
	}{
		{"single city", []Pair{{"New York", "NY"}}, "newyork_ny"},
		{"single city extra spaces", []Pair{{"  Salt  Lake City ", "UT"}}, "saltlakecity_ut"},
		{"one state several cities", []Pair{{"Boston", "MA"}, {"Cambridge", "MA"}}, "MA"},
		{"one state mixed case", []Pair{{"Boston", "ma"}, {"Cambridge", "MA"}}, "MA"},
		{"punctuation dropped", []Pair{{"St. Louis", "MO"}}, "stlouis_mo"},
		{"hyphen dropped", []Pair{{"Winston-Salem", "NC"}}, "winstonsalem_nc"},
		{"apostrophe dropped", []Pair{{"Coeur d'Alene", "ID"}}, "coeurdalene_id"},
		{"accents folded", []Pair{{"Española", "NM"}}, "espanola_nm"},
		{"path elements dropped", []Pair{{"../../escaped", "MA"}}, "escaped_ma"},
		{"separators only", []Pair{{"/..", "MA"}}, "MA"},
		{"several states", []Pair{{"Boston", "MA"}, {"Providence", "RI"}}, "all"},
		{"nothing", nil, "all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Identifier(tt.pairs)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, `^([a-z0-9_]+|[A-Z0-9]+)$`, got)
		})
	}
}
