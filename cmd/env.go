package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/config"
	"github.com/sells-group/venue-atlas/internal/extract"
	"github.com/sells-group/venue-atlas/internal/fetcher"
	"github.com/sells-group/venue-atlas/internal/listing"
	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/internal/resilience"
	"github.com/sells-group/venue-atlas/pkg/geocode"
)

// harvestEnv holds the collaborators the harvest and cities commands share.
type harvestEnv struct {
	States    model.States
	Source    *listing.Source
	Extractor *extract.Extractor
	Store     cache.Store // nil for commands that never touch the cache
	Geocoder  geocode.Client
}

// Close releases the cache store.
func (e *harvestEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// newSource builds the listing source and its fetcher.
func newSource(c config.SourceConfig) *listing.Source {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
	})
	return listing.New(f, listing.Options{
		BaseURL:          c.BaseURL,
		Country:          c.Country,
		PageSize:         c.PageSize,
		NoListingsMarker: c.NoListingsMarker,
	})
}

// newGeocoder builds the geocoding chain: an in-process memo in front of a
// circuit breaker in front of the paced provider client.
func newGeocoder(c config.GeocodeConfig) (geocode.Client, error) {
	opts := []geocode.Option{
		geocode.WithUserAgent(c.UserAgent),
		geocode.WithTimeout(time.Duration(c.TimeoutSecs) * time.Second),
	}

	var provider geocode.Client
	switch c.Provider {
	case "google":
		g, err := geocode.NewGoogle(append(opts, geocode.WithAPIKey(c.GoogleKey))...)
		if err != nil {
			return nil, err
		}
		provider = g
	default:
		provider = geocode.NewNominatim(append(opts, geocode.WithBaseURL(c.BaseURL))...)
	}

	var client geocode.Client = geocode.NewPaced(provider, c.Delay(), nil)
	client = geocode.NewBreaker(client, resilience.BreakerConfigFrom(c.BreakerThreshold, c.BreakerResetSecs))
	if c.MemoTTLMins > 0 {
		client = geocode.NewMemo(client, time.Duration(c.MemoTTLMins)*time.Minute)
	}

	zap.L().Debug("geocoder ready",
		zap.String("provider", c.Provider),
		zap.Duration("delay", c.Delay()),
	)
	return client, nil
}

// newExtractor builds the extractor with the configured rating stride.
func newExtractor(states model.States, c config.SourceConfig) *extract.Extractor {
	sel := extract.DefaultSelectors()
	if c.RatingStride > 0 {
		sel.RatingStride = c.RatingStride
	}
	return extract.New(states, extract.WithSelectors(sel))
}

// initHarvest validates the config for mode and builds the environment.
// The cache and geocoder are only built for the harvest mode.
func initHarvest(ctx context.Context, mode string) (*harvestEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	states, err := model.LoadStates(cfg.StatesFile)
	if err != nil {
		return nil, err
	}

	env := &harvestEnv{
		States:    states,
		Source:    newSource(cfg.Source),
		Extractor: newExtractor(states, cfg.Source),
	}
	if mode != "harvest" {
		return env, nil
	}

	env.Geocoder, err = newGeocoder(cfg.Geocode)
	if err != nil {
		return nil, err
	}
	env.Store, err = initStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	return env, nil
}
