package geocode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocode_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "format=jsonv2&limit=1&q=2201+Pennsylvania+Ave+19130", r.URL.RawQuery)
		assert.Equal(t, "venue-atlas-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{
			"place_id": 1,
			"lat": "39.9656",
			"lon": "-75.1810",
			"display_name": "Bishop's Collar, 2349, Fairmount Avenue, Philadelphia"
		}]`)
	}))
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL+"/"), WithUserAgent("venue-atlas-test"))
	result, err := n.Geocode(context.Background(), "2201 Pennsylvania Ave 19130")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, -75.1810, result.Longitude, 1e-9)
	assert.InDelta(t, 39.9656, result.Latitude, 1e-9)
	assert.Equal(t, "nominatim", result.Source)
	assert.Contains(t, result.DisplayName, "Philadelphia")
}

func TestNominatimGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	result, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "nowhere 00000")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestNominatimGeocode_DefaultEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		_, _ = io.WriteString(w, `[{"lat": "1.5", "lon": "2.5"}]`)
	}))
	defer srv.Close()

	n := NewNominatim(WithHTTPClient(newRewriteClient(srv.URL, nominatimURL)))
	result, err := n.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2.5, result.Longitude)
	assert.Equal(t, 1.5, result.Latitude)
}

func TestNominatimGeocode_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
	assert.Contains(t, err.Error(), "invalid json")
}

func TestNominatimGeocode_MissingCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"display_name": "somewhere"}]`)
	}))
	defer srv.Close()

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing coordinates")
}

func TestNominatimGeocode_StatusClassification(t *testing.T) {
	tests := []struct {
		status      int
		unavailable bool
		timeout     bool
	}{
		{http.StatusServiceUnavailable, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusTooManyRequests, true, false},
		{http.StatusGatewayTimeout, false, true},
		{http.StatusRequestTimeout, false, true},
		{http.StatusForbidden, false, false},
		{http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrServiceUnavailable))
			assert.Equal(t, tt.timeout, errors.Is(err, ErrTimeout))
			assert.Equal(t, tt.unavailable || tt.timeout, IsRecoverable(err))
		})
	}
}

func TestNominatimGeocode_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	n := NewNominatim(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := n.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRecoverable(err))
}

func TestNominatimGeocode_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewNominatim(WithBaseURL(addr)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestNominatimGeocode_CallerCancelIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(ctx, "x")
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
	assert.ErrorIs(t, err, context.Canceled)
}
