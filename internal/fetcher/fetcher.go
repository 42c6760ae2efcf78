// Package fetcher retrieves listing and directory pages over HTTP.
package fetcher

import "context"

// Page is one fetched document.
type Page struct {
	// URL is the address that was requested.
	URL string
	// FinalURL is the address of the last request after redirects.
	FinalURL string
	Status   int
	Body     []byte
}

// Fetcher fetches a page by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}
