package upload

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures Wait.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Wait polls Status until the job completes, fails, or the context expires.
// The interval doubles from the initial value up to the cap.
func (c *Client) Wait(ctx context.Context, id string, opts ...PollOption) (*Status, error) {
	cfg := pollConfig{initial: defaultPollInitial, cap: defaultPollCap, timeout: defaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		status, err := c.Status(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "upload: poll import %s", id)
		}

		switch status.State {
		case StateComplete:
			return status, nil
		case StateFailure:
			return status, eris.Errorf("upload: import %s failed (code %d): %s", id, status.ErrorCode, status.ErrorText)
		}
		zap.L().Debug("upload: import pending", zap.String("id", id), zap.String("state", status.State))

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "upload: poll import %s timed out", id)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

// ImportAndWait uploads the file and waits for the import to finish.
func (c *Client) ImportAndWait(ctx context.Context, path string, opts ...PollOption) (*Status, error) {
	id, err := c.Import(ctx, path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("upload: import queued", zap.String("id", id), zap.String("path", path))
	return c.Wait(ctx, id, opts...)
}
