package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/pkg/geocode"
)

// GeocodeStats counts the outcomes of one Resolve call.
type GeocodeStats struct {
	NoZipcode int `json:"no_zipcode"`
	Requested int `json:"requested"`
	Resolved  int `json:"resolved"`
	Unmatched int `json:"unmatched"`
	Failed    int `json:"failed"`
}

// Add accumulates o into s.
func (s *GeocodeStats) Add(o GeocodeStats) {
	s.NoZipcode += o.NoZipcode
	s.Requested += o.Requested
	s.Resolved += o.Resolved
	s.Unmatched += o.Unmatched
	s.Failed += o.Failed
}

// Geocoder resolves cache misses through a geocoding client and records
// each success in the cache.
type Geocoder struct {
	client geocode.Client
	store  cache.Store
}

// NewGeocoder creates a Geocoder.
func NewGeocoder(client geocode.Client, store cache.Store) *Geocoder {
	return &Geocoder{client: client, store: store}
}

// Resolve geocodes venues in order. Venues without a zipcode are never sent
// to the client. Unmatched queries and recoverable service errors skip the
// venue; any other error aborts and is returned with the venues resolved so
// far.
func (g *Geocoder) Resolve(ctx context.Context, venues []model.Venue) ([]model.ResolvedVenue, *GeocodeStats, error) {
	stats := &GeocodeStats{}
	out := make([]model.ResolvedVenue, 0, len(venues))

	for _, v := range venues {
		if !v.Geocodable() {
			stats.NoZipcode++
			zap.L().Debug("geocode: no zipcode, skipping", zap.String("name", v.Name), zap.String("city", v.City))
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, stats, eris.Wrap(err, "geocode: resolve")
		}

		log := zap.L().With(zap.String("name", v.Name), zap.String("city", v.City))
		query := v.Query()

		stats.Requested++
		res, err := g.client.Geocode(ctx, query)
		if err != nil {
			if geocode.IsRecoverable(err) {
				stats.Failed++
				log.Warn("geocode: service error, skipping venue", zap.String("query", query), zap.Error(err))
				continue
			}
			return out, stats, eris.Wrapf(err, "geocode: resolve %q", v.Name)
		}
		if res == nil || !res.Matched {
			stats.Unmatched++
			log.Warn("geocode: no match, skipping venue", zap.String("query", query))
			continue
		}

		rv := model.Resolve(v, model.Location{Longitude: res.Longitude, Latitude: res.Latitude})
		if err := g.store.Put(ctx, model.NewCacheRecord(rv)); err != nil {
			return out, stats, eris.Wrapf(err, "geocode: cache %q", v.Name)
		}
		stats.Resolved++
		out = append(out, rv)
	}
	return out, stats, nil
}
