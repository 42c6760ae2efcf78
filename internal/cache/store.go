// Package cache persists resolved venue coordinates keyed by (name, city)
// so repeat harvests only geocode venues they have not seen before.
package cache

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-atlas/internal/model"
)

// ErrNotFound is returned by UpdateRating when no record has the key.
var ErrNotFound = eris.New("cache: record not found")

// Store is the persistent geocode cache.
type Store interface {
	// Get returns the record for key, or nil and no error on a miss.
	Get(ctx context.Context, key model.VenueKey) (*model.CacheRecord, error)
	// Put inserts or replaces the record for its key. CreatedAt of an
	// existing record is kept.
	Put(ctx context.Context, rec model.CacheRecord) error
	// UpdateRating changes only the rating of an existing record.
	UpdateRating(ctx context.Context, key model.VenueKey, rating model.Rating) error
	List(ctx context.Context, filter ListFilter) ([]model.CacheRecord, error)
	Count(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	State  string
	City   string
	Limit  int
	Offset int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
