// Package extract turns listing pages into venue records. Each page is
// read as four parallel columns (names, addresses, categories, ratings)
// which are zipped row by row.
package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/fetcher"
	"github.com/sells-group/venue-atlas/internal/model"
)

var (
	// ErrMalformedCategory marks a category cell without a bracketed list.
	ErrMalformedCategory = eris.New("extract: malformed category")
	// ErrMalformedRating marks a rating cell that is neither a number nor
	// the no-rating glyph.
	ErrMalformedRating = eris.New("extract: malformed rating")
	// ErrColumnMismatch marks a page whose columns have different lengths.
	ErrColumnMismatch = eris.New("extract: column length mismatch")
	// ErrUnknownState marks a state code missing from the state table.
	ErrUnknownState = eris.New("extract: unknown state")
)

// Selectors locate the four listing columns on a page.
type Selectors struct {
	Names      string
	Addresses  string
	Categories string
	Ratings    string
	// RatingStride keeps every n-th Ratings match; the other cells in the
	// group hold secondary scores.
	RatingStride int
}

// DefaultSelectors returns the selectors for the beeradvocate.com place
// list markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Names:        `td[colspan="2"][align="left"]`,
		Addresses:    `td.hr_bottom_dark[align="left"]`,
		Categories:   `td.hr_bottom_dark[align="right"]`,
		Ratings:      `td.hr_bottom_light`,
		RatingStride: 4,
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors overrides the column selectors.
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) {
		if s.RatingStride <= 0 {
			s.RatingStride = 1
		}
		e.sel = s
	}
}

// Extractor parses listing pages. The state table supplies the full state
// name that precedes the zipcode in addresses.
type Extractor struct {
	states model.States
	sel    Selectors
}

// New creates an Extractor.
func New(states model.States, opts ...Option) *Extractor {
	e := &Extractor{states: states, sel: DefaultSelectors()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RowError records a row dropped because one of its cells was malformed.
type RowError struct {
	Page int
	Row  int
	Name string
	Err  error
}

// PageError records a page dropped as a whole.
type PageError struct {
	Page int
	URL  string
	Err  error
}

// Result is the outcome of extracting a batch of pages.
type Result struct {
	Venues      []model.Venue
	SkippedRows []RowError
	PageErrors  []PageError
}

// Extract parses every page and concatenates the venues in page order.
// Malformed rows and mismatched pages are skipped and reported in the
// result; only an unknown state fails the call.
func (e *Extractor) Extract(pages []fetcher.Page, city, state string) (*Result, error) {
	stateName, ok := e.states.Name(state)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownState, "%q", state)
	}

	log := zap.L().With(zap.String("city", city), zap.String("state", state))
	res := &Result{Venues: []model.Venue{}}

	for i, p := range pages {
		venues, skipped, err := e.extractPage(p.Body, city, state, stateName)
		if err != nil {
			log.Error("skipping page", zap.Int("page", i), zap.String("url", p.URL), zap.Error(err))
			res.PageErrors = append(res.PageErrors, PageError{Page: i, URL: p.URL, Err: err})
			continue
		}
		for _, s := range skipped {
			s.Page = i
			log.Warn("skipping malformed row",
				zap.Int("page", i),
				zap.Int("row", s.Row),
				zap.String("name", s.Name),
				zap.Error(s.Err),
			)
			res.SkippedRows = append(res.SkippedRows, s)
		}
		res.Venues = append(res.Venues, venues...)
	}
	return res, nil
}

// ExtractPage parses a single page body. Rows with a malformed category or
// rating are returned as RowErrors; a column length mismatch fails the
// page with ErrColumnMismatch.
func (e *Extractor) ExtractPage(body []byte, city, state string) ([]model.Venue, []RowError, error) {
	stateName, ok := e.states.Name(state)
	if !ok {
		return nil, nil, eris.Wrapf(ErrUnknownState, "%q", state)
	}
	return e.extractPage(body, city, state, stateName)
}

func (e *Extractor) extractPage(body []byte, city, state, stateName string) ([]model.Venue, []RowError, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, eris.Wrap(err, "extract: parse page")
	}

	names := ReadColumn(doc, e.sel.Names, false)
	addresses := ReadColumn(doc, e.sel.Addresses, true)
	categories := ReadColumn(doc, e.sel.Categories, false)
	ratings := ReadColumn(doc, e.sel.Ratings, false).Stride(e.sel.RatingStride)

	n := names.Len()
	if addresses.Len() != n || categories.Len() != n || ratings.Len() != n {
		return nil, nil, eris.Wrapf(ErrColumnMismatch,
			"names=%d addresses=%d categories=%d ratings=%d",
			n, addresses.Len(), categories.Len(), ratings.Len())
	}

	venues := make([]model.Venue, 0, n)
	var skipped []RowError
	for i := range n {
		name, _ := names.At(i)
		addr, _ := addresses.At(i)
		catCell, _ := categories.At(i)
		ratingCell, _ := ratings.At(i)

		cats, err := ParseCategories(catCell)
		if err != nil {
			skipped = append(skipped, RowError{Row: i, Name: name, Err: err})
			continue
		}
		rating, err := model.ParseRating(ratingCell)
		if err != nil {
			skipped = append(skipped, RowError{Row: i, Name: name, Err: eris.Wrapf(ErrMalformedRating, "%q", ratingCell)})
			continue
		}

		street, zip := ParseAddress(addr, city, stateName)
		venues = append(venues, model.Venue{
			Name:       name,
			City:       city,
			State:      state,
			Street:     street,
			Zipcode:    zip,
			Categories: cats,
			Rating:     rating,
		})
	}
	return venues, skipped, nil
}
