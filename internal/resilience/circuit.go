// Package resilience holds the failure-handling primitives shared by the
// listing fetcher and the geocoding clients: a circuit breaker, a retry loop
// with backoff, and transient error classification.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the position of a circuit breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen lets one trial call through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when a call is rejected by an open breaker.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls a CircuitBreaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive tripping failures that opens
	// the circuit. Default 5.
	Threshold int

	// ResetTimeout is how long the circuit stays open before a trial call is
	// allowed. Default 60s.
	ResetTimeout time.Duration

	// ShouldTrip decides which errors count as failures. Nil counts every
	// non-nil error.
	ShouldTrip func(err error) bool

	// OnStateChange is called on every transition, under the breaker lock.
	OnStateChange func(from, to State)

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// BreakerConfigFrom builds a config from the integer settings carried in
// the geocode configuration section. Non-positive values keep the defaults.
func BreakerConfigFrom(threshold, resetSecs int) BreakerConfig {
	cfg := BreakerConfig{Threshold: 5, ResetTimeout: time.Minute}
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	if resetSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetSecs) * time.Second
	}
	return cfg
}

// CircuitBreaker guards calls to one external service.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = time.Minute
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Do runs fn unless the circuit is open, in which case ErrCircuitOpen is
// returned without calling fn.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.admit() {
		return zero, ErrCircuitOpen
	}
	v, err := fn(ctx)
	cb.record(err)
	return v, err
}

// State reports the current state. An open circuit whose reset timeout has
// elapsed reports HalfOpen.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == Open && cb.cooled() {
		return HalfOpen
	}
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) cooled() bool {
	return cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != Open {
		return true
	}
	if !cb.cooled() {
		return false
	}
	cb.moveTo(HalfOpen)
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.cfg.ShouldTrip(err) {
		cb.failures = 0
		if cb.state == HalfOpen {
			cb.moveTo(Closed)
		}
		return
	}

	cb.failures++
	if cb.state == HalfOpen || cb.failures >= cb.cfg.Threshold {
		cb.openedAt = cb.cfg.Now()
		if cb.state != Open {
			cb.moveTo(Open)
		}
	}
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil && from != to {
		cb.cfg.OnStateChange(from, to)
	}
}
