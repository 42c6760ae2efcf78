package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/config"
)

// initStore opens and migrates the configured geocode cache. Callers close
// the returned store.
func initStore(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	var (
		st  cache.Store
		err error
	)
	switch c.Driver {
	case "sqlite":
		path := c.Path
		if path == "" {
			path = "venues.db"
		}
		st, err = cache.NewSQLite(path)
	case "postgres":
		st, err = cache.NewPostgres(ctx, c.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", c.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate cache")
	}
	return st, nil
}
