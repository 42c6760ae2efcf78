// Package listing walks the paginated venue directory: it builds listing
// URLs, fetches every page for a (city, state) pair and discovers the
// cities listed for a state.
package listing

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/fetcher"
)

// ErrDirectoryLayout is returned when a state directory page lacks the
// expected city columns.
var ErrDirectoryLayout = eris.New("listing: unexpected directory layout")

// Options configures a Source. Zero values take the defaults of the
// beeradvocate.com place directory.
type Options struct {
	BaseURL          string
	Country          string
	PageSize         int
	NoListingsMarker string
	// CountSelector matches the cell carrying the result total.
	CountSelector string
	// CitySelector matches the directory cells holding city lists.
	CitySelector string
	// CityColumns are the indices of CitySelector matches to read.
	CityColumns []int
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = "https://www.beeradvocate.com"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Country == "" {
		o.Country = "US"
	}
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.NoListingsMarker == "" {
		o.NoListingsMarker = "failure"
	}
	if o.CountSelector == "" {
		o.CountSelector = `td[bgcolor="#000000"]`
	}
	if o.CitySelector == "" {
		o.CitySelector = `td[align="left"][valign="top"]`
	}
	if len(o.CityColumns) == 0 {
		o.CityColumns = []int{5, 6}
	}
	return o
}

// Source fetches listing and directory pages through a Fetcher.
type Source struct {
	fetch fetcher.Fetcher
	opts  Options
}

// New creates a Source.
func New(f fetcher.Fetcher, opts Options) *Source {
	return &Source{fetch: f, opts: opts.withDefaults()}
}

// PageSize returns the number of listings per page.
func (s *Source) PageSize() int { return s.opts.PageSize }

// ListURL returns the listing URL for a city, state and page offset. Multi
// word city names are joined with '+'.
func (s *Source) ListURL(city, state string, offset int) string {
	q := url.QueryEscape(strings.Join(strings.Fields(city), " "))
	return fmt.Sprintf("%s/place/list/?start=%d&c_id=%s&s_id=%s&city=%s&sort=name",
		s.opts.BaseURL, offset, s.opts.Country, strings.ToUpper(state), q)
}

// DirectoryURL returns the city directory URL for a state.
func (s *Source) DirectoryURL(state string) string {
	return fmt.Sprintf("%s/place/directory/9/%s/%s/", s.opts.BaseURL, s.opts.Country, strings.ToUpper(state))
}

// FetchAll returns every listing page for the pair, in offset order. A
// first response redirected to the no-listings page yields an empty batch
// and no error.
func (s *Source) FetchAll(ctx context.Context, city, state string) ([]fetcher.Page, error) {
	log := zap.L().With(zap.String("city", city), zap.String("state", state))

	first, err := s.fetch.Fetch(ctx, s.ListURL(city, state, 0))
	if err != nil {
		return nil, eris.Wrapf(err, "listing: fetch %s, %s", city, state)
	}
	if strings.Contains(first.FinalURL, s.opts.NoListingsMarker) {
		log.Info("no listings for location", zap.String("final_url", first.FinalURL))
		return []fetcher.Page{}, nil
	}

	pages := []fetcher.Page{*first}

	total, ok := ParseTotal(first.Body, s.opts.CountSelector)
	if !ok {
		log.Warn("result count not found, using first page only")
		return pages, nil
	}

	offsets := AdditionalOffsets(total, s.opts.PageSize)
	log.Debug("paginating", zap.Int("total", total), zap.Int("extra_pages", len(offsets)))

	for _, off := range offsets {
		p, err := s.fetch.Fetch(ctx, s.ListURL(city, state, off))
		if err != nil {
			return nil, eris.Wrapf(err, "listing: fetch %s, %s at offset %d", city, state, off)
		}
		pages = append(pages, *p)
	}
	return pages, nil
}

// AdditionalOffsets returns the start offsets after the first page needed
// to cover total results: pageSize, 2*pageSize, ... up to the page holding
// the last result.
func AdditionalOffsets(total, pageSize int) []int {
	if total <= pageSize || pageSize <= 0 {
		return nil
	}
	last := (total - 1) / pageSize * pageSize
	offsets := make([]int, 0, last/pageSize)
	for off := pageSize; off <= last; off += pageSize {
		offsets = append(offsets, off)
	}
	return offsets
}

var lastInt = regexp.MustCompile(`(\d+)\D*$`)

// ParseTotal reads the result total: the last integer in the first cell
// matching selector. Thousands separators are ignored.
func ParseTotal(body []byte, selector string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	cell := doc.Find(selector).First()
	if cell.Length() == 0 {
		return 0, false
	}
	text := strings.ReplaceAll(cell.Text(), ",", "")
	m := lastInt.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ListCities fetches the state directory and returns the city names it
// lists, whitespace collapsed, duplicates removed, first-seen order kept.
func (s *Source) ListCities(ctx context.Context, state string) ([]string, error) {
	page, err := s.fetch.Fetch(ctx, s.DirectoryURL(state))
	if err != nil {
		return nil, eris.Wrapf(err, "listing: fetch directory %s", state)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "listing: parse directory %s", state)
	}

	cells := doc.Find(s.opts.CitySelector)
	var cities []string
	seen := make(map[string]bool)
	for _, idx := range s.opts.CityColumns {
		if idx >= cells.Length() {
			return nil, eris.Wrapf(ErrDirectoryLayout, "%s: %d city cells, want index %d", state, cells.Length(), idx)
		}
		cells.Eq(idx).Find("li").Each(func(_ int, li *goquery.Selection) {
			name := strings.Join(strings.Fields(li.Text()), " ")
			if name == "" || seen[name] {
				return
			}
			seen[name] = true
			cities = append(cities, name)
		})
	}

	zap.L().Info("discovered cities", zap.String("state", state), zap.Int("count", len(cities)))
	return cities, nil
}
