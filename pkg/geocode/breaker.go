package geocode

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/resilience"
)

// Breaker fails fast with ErrServiceUnavailable once the wrapped client has
// returned Threshold consecutive recoverable errors, until the reset timeout
// elapses. Fatal errors and successes reset the count.
type Breaker struct {
	next Client
	cb   *resilience.CircuitBreaker
}

// NewBreaker wraps next. cfg.ShouldTrip defaults to IsRecoverable.
func NewBreaker(next Client, cfg resilience.BreakerConfig) *Breaker {
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsRecoverable
	}
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(from, to resilience.State) {
			zap.L().Warn("geocode: circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &Breaker{next: next, cb: resilience.NewCircuitBreaker(cfg)}
}

// State reports the breaker position.
func (b *Breaker) State() resilience.State { return b.cb.State() }

// Geocode implements Client.
func (b *Breaker) Geocode(ctx context.Context, query string) (*Result, error) {
	res, err := resilience.Call(ctx, b.cb, func(ctx context.Context) (*Result, error) {
		return b.next.Geocode(ctx, query)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, eris.Wrap(ErrServiceUnavailable, "circuit open")
	}
	return res, err
}
