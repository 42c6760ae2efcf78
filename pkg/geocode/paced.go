package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Clock is the time source used for pacing.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

// Paced spaces calls to the wrapped client at least delay apart. The delay
// is fixed for the life of the client.
type Paced struct {
	next    Client
	delay   time.Duration
	clock   Clock
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewPaced wraps next. A nil clock uses the wall clock; a non-positive delay
// disables pacing.
func NewPaced(next Client, delay time.Duration, clock Clock) *Paced {
	if clock == nil {
		clock = realClock{}
	}
	p := &Paced{next: next, delay: delay, clock: clock}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

// Delay returns the configured spacing.
func (p *Paced) Delay() time.Duration { return p.delay }

// Geocode implements Client.
func (p *Paced) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.Geocode(ctx, query)
}

func (p *Paced) wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if err := p.clock.Sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(now)
		return eris.Wrap(err, "geocode: pace")
	}
	return nil
}
