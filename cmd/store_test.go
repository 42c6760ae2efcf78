package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-atlas/internal/config"
	"github.com/sells-group/venue-atlas/internal/model"
)

func TestInitStore_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := initStore(ctx, config.CacheConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "venues.db"),
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.CacheConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache driver")
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	err := printRecords(&buf, []model.CacheRecord{
		{Name: "Row 34", City: "Boston", State: "MA", Rating: model.RatingOf(4.25), Longitude: -71.05, Latitude: 42.35, UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "J.M. Curley", City: "Boston", State: "MA", Rating: model.NoRating()},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Row 34")
	assert.Contains(t, out, "-71.050000")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "J.M. Curley")
}
