package geocode

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Memo remembers answers per query string so identical addresses in one
// run reach the service once. Errors are not remembered.
type Memo struct {
	next  Client
	cache *gocache.Cache
}

// NewMemo wraps next. A non-positive ttl keeps entries for the life of the
// process.
func NewMemo(next Client, ttl time.Duration) *Memo {
	c := gocache.New(gocache.NoExpiration, 0)
	if ttl > 0 {
		c = gocache.New(ttl, 2*ttl)
	}
	return &Memo{next: next, cache: c}
}

// Len returns the number of remembered queries.
func (m *Memo) Len() int { return m.cache.ItemCount() }

// Geocode implements Client.
func (m *Memo) Geocode(ctx context.Context, query string) (*Result, error) {
	if v, ok := m.cache.Get(query); ok {
		zap.L().Debug("geocode: memo hit", zap.String("query", query))
		r := v.(Result)
		return &r, nil
	}

	res, err := m.next.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	m.cache.SetDefault(query, *res)
	return res, nil
}
