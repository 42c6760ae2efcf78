package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/fetcher"
	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/pkg/geocode"
)

// --- Geocode Mock ---

type mockGeocodeClient struct {
	mock.Mock
}

func (m *mockGeocodeClient) Geocode(ctx context.Context, query string) (*geocode.Result, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Result), args.Error(1)
}

func match(lon, lat float64) *geocode.Result {
	return &geocode.Result{Longitude: lon, Latitude: lat, Source: "nominatim", Matched: true}
}

// --- Source Stub ---

type stubSource struct {
	pages    map[Pair][]fetcher.Page
	cities   map[string][]string
	fetchErr map[Pair]error
	fetched  []Pair
}

func (s *stubSource) FetchAll(_ context.Context, city, state string) ([]fetcher.Page, error) {
	p := Pair{City: city, State: state}
	s.fetched = append(s.fetched, p)
	if err := s.fetchErr[p]; err != nil {
		return nil, err
	}
	return s.pages[p], nil
}

func (s *stubSource) ListCities(_ context.Context, state string) ([]string, error) {
	return s.cities[state], nil
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	st, err := cache.NewSQLite(filepath.Join(t.TempDir(), "venues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func venue(name, city, state, street, zip string, rating model.Rating) model.Venue {
	return model.Venue{
		Name:       name,
		City:       city,
		State:      state,
		Street:     street,
		Zipcode:    zip,
		Categories: []string{"Bar"},
		Rating:     rating,
	}
}
