package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const nominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes through an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	opts options
}

// NewNominatim creates a Nominatim client. The public endpoint is used
// unless WithBaseURL is given.
func NewNominatim(opts ...Option) *Nominatim {
	o := newOptions(nominatimURL, opts)
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	return &Nominatim{opts: o}
}

// Geocode implements Client.
func (n *Nominatim) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"limit":  {"1"},
		"q":      {query},
	}
	body, err := n.opts.get(ctx, "nominatim", n.opts.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, eris.New("geocode: nominatim returned invalid json")
	}
	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, lon := first.Get("lat"), first.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return nil, eris.New("geocode: nominatim result missing coordinates")
	}
	return &Result{
		Longitude:   lon.Float(),
		Latitude:    lat.Float(),
		Source:      "nominatim",
		DisplayName: first.Get("display_name").String(),
		Matched:     true,
	}, nil
}
