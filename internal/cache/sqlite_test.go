package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-atlas/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "venues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func record(name, city, state string, rating model.Rating, lon, lat float64) model.CacheRecord {
	return model.CacheRecord{Name: name, City: city, State: state, Rating: rating, Longitude: lon, Latitude: lat}
}

func TestSQLite_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, record("Row 34", "Boston", "MA", model.RatingOf(4.1), -71.05, 42.35)))

	got, err := st.Get(ctx, model.VenueKey{Name: "Row 34", City: "Boston"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "MA", got.State)
	assert.Equal(t, model.RatingOf(4.1), got.Rating)
	assert.InDelta(t, -71.05, got.Longitude, 1e-9)
	assert.InDelta(t, 42.35, got.Latitude, 1e-9)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_GetMiss(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.Get(context.Background(), model.VenueKey{Name: "Nope", City: "Boston"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_KeyIsExact(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, record("Lord Hobo", "Cambridge", "MA", model.NoRating(), -71.1, 42.37)))

	got, err := st.Get(ctx, model.VenueKey{Name: "lord hobo", City: "Cambridge"})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = st.Get(ctx, model.VenueKey{Name: "Lord Hobo", City: "Boston"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_NullRating(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, record("Lord Hobo", "Cambridge", "MA", model.NoRating(), -71.1, 42.37)))

	got, err := st.Get(ctx, model.VenueKey{Name: "Lord Hobo", City: "Cambridge"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.NoRating(), got.Rating)
}

func TestSQLite_PutReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	key := model.VenueKey{Name: "Row 34", City: "Boston"}

	require.NoError(t, st.Put(ctx, record("Row 34", "Boston", "MA", model.RatingOf(4.1), -71.05, 42.35)))
	first, err := st.Get(ctx, key)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, st.Put(ctx, record("Row 34", "Boston", "MA", model.RatingOf(4.3), -71.06, 42.36)))

	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.RatingOf(4.3), got.Rating)
	assert.InDelta(t, -71.06, got.Longitude, 1e-9)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_UpdateRating(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	key := model.VenueKey{Name: "Row 34", City: "Boston"}
	require.NoError(t, st.Put(ctx, record("Row 34", "Boston", "MA", model.RatingOf(4.1), -71.05, 42.35)))

	require.NoError(t, st.UpdateRating(ctx, key, model.RatingOf(3.2)))
	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.RatingOf(3.2), got.Rating)
	assert.InDelta(t, -71.05, got.Longitude, 1e-9)
	assert.InDelta(t, 42.35, got.Latitude, 1e-9)

	require.NoError(t, st.UpdateRating(ctx, key, model.NoRating()))
	got, err = st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.NoRating(), got.Rating)
}

func TestSQLite_UpdateRatingMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateRating(context.Background(), model.VenueKey{Name: "Ghost", City: "Boston"}, model.RatingOf(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	for _, r := range []model.CacheRecord{
		record("Row 34", "Boston", "MA", model.RatingOf(4.1), -71.05, 42.35),
		record("Bukowski Tavern", "Boston", "MA", model.RatingOf(4.0), -71.08, 42.34),
		record("Lord Hobo", "Cambridge", "MA", model.NoRating(), -71.1, 42.37),
		record("Ruck", "Troy", "NY", model.RatingOf(3.7), -73.69, 42.73),
	} {
		require.NoError(t, st.Put(ctx, r))
	}

	all, err := st.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Bukowski Tavern", all[0].Name)

	boston, err := st.List(ctx, ListFilter{State: "MA", City: "Boston"})
	require.NoError(t, err)
	assert.Len(t, boston, 2)

	ny, err := st.List(ctx, ListFilter{State: "NY"})
	require.NoError(t, err)
	require.Len(t, ny, 1)
	assert.Equal(t, "Ruck", ny[0].Name)

	page, err := st.List(ctx, ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Lord Hobo", page[0].Name)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}
