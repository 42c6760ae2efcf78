package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/pkg/geocode"
)

func TestResolve_SkipsVenuesWithoutZipcode(t *testing.T) {
	client := new(mockGeocodeClient)
	client.On("Geocode", mock.Anything, "50 Dalton St 02115").Return(match(-71.08, 42.34), nil).Once()
	st := newTestStore(t)

	venues := []model.Venue{
		venue("Bukowski Tavern", "Boston", "MA", "50 Dalton St", "02115", model.RatingOf(4.25)),
		venue("Lord Hobo", "Boston", "MA", "92 Hampshire St", "", model.NoRating()),
		venue("Mystery Bar", "Boston", "MA", "", "", model.NoRating()),
	}

	out, stats, err := NewGeocoder(client, st).Resolve(context.Background(), venues)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Bukowski Tavern", out[0].Name)
	assert.Equal(t, GeocodeStats{NoZipcode: 2, Requested: 1, Resolved: 1}, *stats)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "Geocode", 1)
}

func TestResolve_PartialFailureIsolation(t *testing.T) {
	client := new(mockGeocodeClient)
	client.On("Geocode", mock.Anything, "1 A St 02101").Return(match(-71.0, 42.3), nil)
	client.On("Geocode", mock.Anything, "2 B St 02101").Return(nil, geocode.ErrServiceUnavailable)
	client.On("Geocode", mock.Anything, "3 C St 02101").Return(nil, geocode.ErrTimeout)
	client.On("Geocode", mock.Anything, "4 D St 02101").Return(match(-71.1, 42.4), nil)
	st := newTestStore(t)

	venues := []model.Venue{
		venue("A", "Boston", "MA", "1 A St", "02101", model.RatingOf(4)),
		venue("B", "Boston", "MA", "2 B St", "02101", model.RatingOf(3)),
		venue("C", "Boston", "MA", "3 C St", "02101", model.RatingOf(3)),
		venue("D", "Boston", "MA", "4 D St", "02101", model.NoRating()),
	}

	out, stats, err := NewGeocoder(client, st).Resolve(context.Background(), venues)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "D", out[1].Name)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 4, stats.Requested)

	ctx := context.Background()
	rec, err := st.Get(ctx, model.VenueKey{Name: "B", City: "Boston"})
	require.NoError(t, err)
	assert.Nil(t, rec, "failed venues are not cached")

	rec, err = st.Get(ctx, model.VenueKey{Name: "D", City: "Boston"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.NoRating(), rec.Rating)
	assert.InDelta(t, -71.1, rec.Longitude, 1e-9)
}

func TestResolve_UnmatchedSkipped(t *testing.T) {
	client := new(mockGeocodeClient)
	client.On("Geocode", mock.Anything, mock.Anything).Return(&geocode.Result{Source: "nominatim"}, nil)

	out, stats, err := NewGeocoder(client, newTestStore(t)).Resolve(context.Background(), []model.Venue{
		venue("A", "Boston", "MA", "1 A St", "02101", model.RatingOf(4)),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, stats.Unmatched)
}

func TestResolve_FatalErrorAborts(t *testing.T) {
	client := new(mockGeocodeClient)
	client.On("Geocode", mock.Anything, "1 A St 02101").Return(match(-71.0, 42.3), nil)
	client.On("Geocode", mock.Anything, "2 B St 02101").Return(nil, errors.New("geocode: google status REQUEST_DENIED"))

	out, _, err := NewGeocoder(client, newTestStore(t)).Resolve(context.Background(), []model.Venue{
		venue("A", "Boston", "MA", "1 A St", "02101", model.RatingOf(4)),
		venue("B", "Boston", "MA", "2 B St", "02101", model.RatingOf(4)),
		venue("C", "Boston", "MA", "3 C St", "02101", model.RatingOf(4)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
	assert.Len(t, out, 1)
	client.AssertNotCalled(t, "Geocode", mock.Anything, "3 C St 02101")
}

func TestResolve_Cancelled(t *testing.T) {
	client := new(mockGeocodeClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewGeocoder(client, newTestStore(t)).Resolve(ctx, []model.Venue{
		venue("A", "Boston", "MA", "1 A St", "02101", model.RatingOf(4)),
	})
	require.ErrorIs(t, err, context.Canceled)
	client.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	client := new(mockGeocodeClient)
	client.On("Geocode", mock.Anything, mock.Anything).Return(match(-71.0, 42.3), nil)

	venues := []model.Venue{venue("A", "Boston", "MA", "1 A St", "02101", model.RatingOf(4))}
	out, _, err := NewGeocoder(client, newTestStore(t)).Resolve(context.Background(), venues)
	require.NoError(t, err)

	out[0].Categories[0] = "Changed"
	assert.Equal(t, "Bar", venues[0].Categories[0])
}

func TestGeocodeStats_Add(t *testing.T) {
	s := GeocodeStats{Requested: 1, Resolved: 1}
	s.Add(GeocodeStats{NoZipcode: 2, Requested: 3, Resolved: 1, Unmatched: 1, Failed: 1})
	assert.Equal(t, GeocodeStats{NoZipcode: 2, Requested: 4, Resolved: 2, Unmatched: 1, Failed: 1}, s)
}
