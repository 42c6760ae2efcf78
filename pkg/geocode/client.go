// Package geocode resolves free-text venue addresses to WGS84 coordinates via
// Nominatim (default) or the Google Geocoding API, with wrappers for request
// pacing, circuit breaking and in-process memoization.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-atlas/internal/resilience"
)

// Client geocodes a single free-text address.
type Client interface {
	// Geocode returns Matched=false with a nil error when the service has
	// no result for the query.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Longitude   float64
	Latitude    float64
	Source      string // "nominatim" or "google"
	DisplayName string
	Matched     bool
}

var (
	// ErrServiceUnavailable means the service refused or dropped the call.
	// Callers may skip the address and continue.
	ErrServiceUnavailable = eris.New("geocode: service unavailable")

	// ErrTimeout means the service did not answer in time. Callers may skip
	// the address and continue.
	ErrTimeout = eris.New("geocode: timeout")
)

// IsRecoverable reports whether err is one of the skippable service errors.
// Every other error is fatal to a run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}

// Option configures a provider client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	apiKey     string
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithTimeout sets the client timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

func newOptions(baseURL string, opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  "venue-atlas/1.0",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// get performs a GET and classifies failures into the package error kinds.
func (o options) get(ctx context.Context, source, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s build request", source)
	}
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, source, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := classifyStatus(source, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, source, err)
	}
	return body, nil
}

// classifyStatus maps a non-2xx HTTP status to an error kind.
func classifyStatus(source string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusGatewayTimeout || code == http.StatusRequestTimeout:
		return eris.Wrapf(ErrTimeout, "%s returned status %d", source, code)
	case code == http.StatusServiceUnavailable || code == http.StatusBadGateway || code == http.StatusTooManyRequests:
		return eris.Wrapf(ErrServiceUnavailable, "%s returned status %d", source, code)
	default:
		return eris.Errorf("geocode: %s returned status %d", source, code)
	}
}

// classifyTransport maps a transport failure to an error kind. Cancellation
// by the caller is never recoverable.
func classifyTransport(ctx context.Context, source string, err error) error {
	if ctx.Err() != nil {
		return eris.Wrapf(ctx.Err(), "geocode: %s request", source)
	}
	if resilience.IsTimeout(err) {
		return eris.Wrapf(ErrTimeout, "%s request: %v", source, err)
	}
	if resilience.IsTransient(err) {
		return eris.Wrapf(ErrServiceUnavailable, "%s request: %v", source, err)
	}
	return eris.Wrapf(err, "geocode: %s request", source)
}

func (r Result) String() string {
	if !r.Matched {
		return fmt.Sprintf("%s: no match", r.Source)
	}
	return fmt.Sprintf("%s: %.6f,%.6f", r.Source, r.Longitude, r.Latitude)
}
