package geocode

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Google geocodes through the Google Geocoding API.
type Google struct {
	opts options
}

// NewGoogle creates a Google client. WithAPIKey is required.
func NewGoogle(opts ...Option) (*Google, error) {
	o := newOptions(googleGeocodeURL, opts)
	if o.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	return &Google{opts: o}, nil
}

// Geocode implements Client.
func (g *Google) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"address": {query},
		"key":     {g.opts.apiKey},
	}
	body, err := g.opts.get(ctx, "google", g.opts.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp googleGeocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Matched: false, Source: "google"}, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, eris.Wrapf(ErrServiceUnavailable, "google status %s", resp.Status)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage)
	}

	if len(resp.Results) == 0 {
		return &Result{Matched: false, Source: "google"}, nil
	}
	r := resp.Results[0]
	return &Result{
		Longitude:   r.Geometry.Location.Lng,
		Latitude:    r.Geometry.Location.Lat,
		Source:      "google",
		DisplayName: r.FormattedAddress,
		Matched:     true,
	}, nil
}
