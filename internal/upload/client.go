// Package upload sends finished GeoJSON collections to a hosted map import
// API and waits for the import job to finish.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const importsPath = "/api/v1/imports/"

// Import job states reported by the API.
const (
	StateComplete = "complete"
	StateFailure  = "failure"
)

// Status is the state of an import job.
type Status struct {
	ID        string
	State     string
	Success   bool
	TableName string
	ErrorCode int64
	ErrorText string
}

// Done reports whether the job reached a terminal state.
func (s *Status) Done() bool {
	return s.State == StateComplete || s.State == StateFailure
}

// APIError is returned when the import API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upload: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the account-derived API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to the import API of one account.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a client for account authenticated by apiKey.
func NewClient(account, apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://%s.carto.com", account),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Import uploads the file at path and returns the import job id.
func (c *Client) Import(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "upload: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", eris.Wrap(err, "upload: create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", eris.Wrapf(err, "upload: read %s", path)
	}
	if err := mw.Close(); err != nil {
		return "", eris.Wrap(err, "upload: close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(""), &body)
	if err != nil {
		return "", eris.Wrap(err, "upload: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.do(req)
	if err != nil {
		return "", eris.Wrapf(err, "upload: import %s", filepath.Base(path))
	}

	id := gjson.GetBytes(data, "item_queue_id").String()
	if id == "" {
		return "", eris.Errorf("upload: import %s: response has no item_queue_id", filepath.Base(path))
	}
	return id, nil
}

// Status fetches the state of an import job.
func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(id), nil)
	if err != nil {
		return nil, eris.Wrap(err, "upload: create request")
	}

	data, err := c.do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "upload: get status %s", id)
	}

	r := gjson.ParseBytes(data)
	return &Status{
		ID:        id,
		State:     r.Get("state").String(),
		Success:   r.Get("success").Bool(),
		TableName: r.Get("table_name").String(),
		ErrorCode: r.Get("error_code").Int(),
		ErrorText: r.Get("get_error_text.what_about").String(),
	}, nil
}

func (c *Client) endpoint(id string) string {
	q := url.Values{"api_key": {c.apiKey}}
	return c.baseURL + importsPath + url.PathEscape(id) + "?" + q.Encode()
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if !gjson.ValidBytes(data) {
		return nil, eris.New("decode response: invalid json")
	}
	return data, nil
}
