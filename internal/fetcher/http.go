package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/venue-atlas/internal/resilience"
)

// maxBodyBytes bounds a single page read.
const maxBodyBytes = 16 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxRetries is the total attempts per page. 1 disables retries.
	MaxRetries int
	// RetryBase is the first backoff delay. Default 1s.
	RetryBase time.Duration
	// RequestsPerSecond paces hosts without an explicit limiter. Zero or
	// negative disables pacing.
	RequestsPerSecond float64
	RateLimiters      map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limiting
// and retry on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "venue-atlas/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

// limiterFor returns the limiter for the URL's host, creating one at the
// default rate on first use.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	limit := rate.Inf
	if f.opts.RequestsPerSecond > 0 {
		limit = rate.Limit(f.opts.RequestsPerSecond)
	}
	lim := rate.NewLimiter(limit, 1)
	f.limiters[host] = lim
	return lim
}

// Fetch GETs rawURL, following redirects. Transport errors, 429 and 5xx
// responses are retried with exponential backoff; other non-2xx statuses
// fail immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	policy := resilience.RetryPolicy{
		Attempts:  f.opts.MaxRetries,
		BaseDelay: f.opts.RetryBase,
		Jitter:    0.5,
		OnRetry:   resilience.LogRetry("fetcher", rawURL),
	}
	page, err := resilience.Retry(ctx, policy, func(ctx context.Context) (*Page, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	return page, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resilience.NewTransientError(eris.Errorf("http %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "read body"), 0)
	}

	page := &Page{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Body:     body,
	}
	zap.L().Debug("fetched page",
		zap.String("url", rawURL),
		zap.String("final_url", page.FinalURL),
		zap.Int("bytes", len(body)),
	)
	return page, nil
}
