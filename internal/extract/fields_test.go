package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name       string
		addr       string
		city       string
		state      string
		wantStreet string
		wantZip    string
	}{
		{
			name:       "joined lines",
			addr:       "50 Dalton StBoston, Massachusetts, 02115United States",
			city:       "Boston",
			state:      "Massachusetts",
			wantStreet: "50 Dalton St",
			wantZip:    "02115",
		},
		{
			name:       "multi word city",
			addr:       "1 Bedford Ave New York, New York, 11211",
			city:       "New  York",
			state:      "New York",
			wantStreet: "1 Bedford Ave",
			wantZip:    "11211",
		},
		{
			name:       "city repeated in street",
			addr:       "10 Boston Ave Boston, Massachusetts, 02118",
			city:       "Boston",
			state:      "Massachusetts",
			wantStreet: "10 Boston Ave",
			wantZip:    "02118",
		},
		{
			name:       "no zipcode",
			addr:       "92 Hampshire St Boston, Massachusetts",
			city:       "Boston",
			state:      "Massachusetts",
			wantStreet: "92 Hampshire St",
		},
		{
			name:    "city missing",
			addr:    "383 Congress St, Massachusetts, 02210",
			city:    "Cambridge",
			state:   "Massachusetts",
			wantZip: "02210",
		},
		{
			name:       "street on later line",
			addr:       "Suite 4\n12 Elm St Salem, Massachusetts, 01970",
			city:       "Salem",
			state:      "Massachusetts",
			wantStreet: "12 Elm St",
			wantZip:    "01970",
		},
		{
			name:       "wrong state name",
			addr:       "12 Elm St Salem, Oregon, 97301",
			city:       "Salem",
			state:      "Massachusetts",
			wantStreet: "12 Elm St",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			street, zip := ParseAddress(tt.addr, tt.city, tt.state)
			assert.Equal(t, tt.wantStreet, street)
			assert.Equal(t, tt.wantZip, zip)
		})
	}
}

func TestParseCategories(t *testing.T) {
	cats, err := ParseCategories("[ Bar, Eatery, Store ]")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bar", "Eatery", "Store"}, cats)

	cats, err = ParseCategories("[ ]")
	require.NoError(t, err)
	assert.Empty(t, cats)

	_, err = ParseCategories("Bar, Eatery")
	assert.ErrorIs(t, err, ErrMalformedCategory)
}

func TestColumn(t *testing.T) {
	c := Column{"a", "b", "c", "d", "e", "f", "g", "h", "i"}

	v, ok := c.At(2)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok = c.At(9)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)

	assert.Equal(t, Column{"a", "e", "i"}, c.Stride(4))
	assert.Equal(t, c, c.Stride(1))
	assert.Equal(t, 0, Column(nil).Stride(4).Len())
}
