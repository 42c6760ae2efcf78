package cache

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/model"
)

// Partitioned splits a venue batch by cache state.
type Partitioned struct {
	// Known are cache hits resolved with the cached coordinates and the
	// freshly scraped rating.
	Known []model.ResolvedVenue
	// Pending are cache misses that still need geocoding.
	Pending []model.Venue
	// RatingUpdates counts hits whose cached rating was refreshed.
	RatingUpdates int
}

// Partition looks up every venue by (name, city). A hit whose rating
// changed has its cached rating updated immediately; coordinates are never
// touched. Hits are resolved from the cache without a geocode call, misses
// are returned as pending. The input slice is not modified.
func Partition(ctx context.Context, store Store, venues []model.Venue) (*Partitioned, error) {
	p := &Partitioned{
		Known:   []model.ResolvedVenue{},
		Pending: []model.Venue{},
	}
	for _, v := range venues {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "cache: partition")
		}

		rec, err := store.Get(ctx, v.Key())
		if err != nil {
			return nil, eris.Wrap(err, "cache: partition lookup")
		}
		if rec == nil {
			p.Pending = append(p.Pending, v)
			continue
		}

		if !rec.Rating.Equal(v.Rating) {
			if err := store.UpdateRating(ctx, v.Key(), v.Rating); err != nil {
				return nil, eris.Wrap(err, "cache: partition rating update")
			}
			p.RatingUpdates++
			zap.L().Debug("refreshed cached rating",
				zap.String("name", v.Name),
				zap.String("city", v.City),
				zap.Stringer("old", rec.Rating),
				zap.Stringer("new", v.Rating),
			)
		}
		p.Known = append(p.Known, model.Resolve(v, rec.Location()))
	}
	return p, nil
}
