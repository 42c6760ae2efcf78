// Package pipeline drives a harvest: for each (city, state) pair it fetches
// the listing pages, extracts venues, resolves coordinates from the cache or
// the geocoder, and finally writes one GeoJSON collection for the run.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/extract"
	"github.com/sells-group/venue-atlas/internal/fetcher"
	"github.com/sells-group/venue-atlas/internal/geojson"
	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/pkg/geocode"
)

var (
	// ErrNoPairs is returned when the targets expand to no (city, state) pairs.
	ErrNoPairs = eris.New("pipeline: no cities to harvest")
	// ErrUnsafeOutput is returned when an output path would leave the output
	// directory.
	ErrUnsafeOutput = eris.New("pipeline: output path outside output dir")
)

// Source fetches listing pages and discovers cities.
type Source interface {
	FetchAll(ctx context.Context, city, state string) ([]fetcher.Page, error)
	ListCities(ctx context.Context, state string) ([]string, error)
}

// Extractor turns listing pages into venues.
type Extractor interface {
	Extract(pages []fetcher.Page, city, state string) (*extract.Result, error)
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Source    Source
	Extractor Extractor
	Store     cache.Store
	Geocoder  geocode.Client
}

// Options control where and how the output is written.
type Options struct {
	OutputDir string
	Mode      geojson.Mode
}

// Target selects cities within a state. Empty Cities means every city the
// state directory lists.
type Target struct {
	State  string
	Cities []string
}

// Pipeline runs harvests. It is not safe for concurrent use.
type Pipeline struct {
	deps     Deps
	opts     Options
	geocoder *Geocoder
	now      func() time.Time
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Mode == "" {
		opts.Mode = geojson.ModeReplace
	}
	return &Pipeline{
		deps:     deps,
		opts:     opts,
		geocoder: NewGeocoder(deps.Geocoder, deps.Store),
		now:      time.Now,
	}
}

// Run processes every pair the targets expand to, in order, and writes the
// accumulated features to <OutputDir>/<identifier>.json. On error the
// partial report is returned alongside it and nothing is written.
func (p *Pipeline) Run(ctx context.Context, targets []Target) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: p.now()}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("pipeline: starting harvest", zap.Int("targets", len(targets)))

	pairs, err := p.Pairs(ctx, targets)
	if err != nil {
		return report, err
	}
	if len(pairs) == 0 {
		return report, ErrNoPairs
	}

	var resolved []model.ResolvedVenue
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "pipeline: run")
		}
		pr, venues, err := p.runPair(ctx, log, pair)
		report.Pairs = append(report.Pairs, *pr)
		if err != nil {
			return report, err
		}
		resolved = append(resolved, venues...)
	}

	report.Identifier = Identifier(pairs)
	report.Path, err = OutputPath(p.opts.OutputDir, report.Identifier)
	if err != nil {
		return report, err
	}
	n, err := geojson.Write(report.Path, geojson.NewFeatures(resolved), p.opts.Mode)
	if err != nil {
		return report, eris.Wrap(err, "pipeline: write output")
	}
	report.Features = n
	report.FinishedAt = p.now()

	log.Info("pipeline: harvest complete",
		zap.String("identifier", report.Identifier),
		zap.String("path", report.Path),
		zap.Int("features", n),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// OutputPath joins the collection file for identifier onto dir and checks
// that the result stays inside dir.
func OutputPath(dir, identifier string) (string, error) {
	path := filepath.Join(dir, geojson.Filename(identifier))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel != filepath.Base(path) {
		return "", eris.Wrapf(ErrUnsafeOutput, "identifier %q", identifier)
	}
	return path, nil
}

// Pairs expands targets into (city, state) pairs, discovering cities for
// targets that name none. Repeated pairs are dropped; the first occurrence
// keeps its place.
func (p *Pipeline) Pairs(ctx context.Context, targets []Target) ([]Pair, error) {
	var pairs []Pair
	seen := make(map[Pair]bool)
	for _, t := range targets {
		state := strings.ToUpper(strings.TrimSpace(t.State))
		cities := t.Cities
		if len(cities) == 0 {
			discovered, err := p.deps.Source.ListCities(ctx, state)
			if err != nil {
				return nil, eris.Wrapf(err, "pipeline: list cities for %s", state)
			}
			if len(discovered) == 0 {
				zap.L().Warn("pipeline: state lists no cities", zap.String("state", state))
			}
			cities = discovered
		}
		for _, c := range cities {
			pair := Pair{City: strings.TrimSpace(c), State: state}
			if seen[pair] {
				zap.L().Debug("pipeline: duplicate city dropped", zap.String("city", pair.City), zap.String("state", state))
				continue
			}
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

func (p *Pipeline) runPair(ctx context.Context, runLog *zap.Logger, pair Pair) (*PairReport, []model.ResolvedVenue, error) {
	log := runLog.With(zap.String("city", pair.City), zap.String("state", pair.State))
	pr := &PairReport{Pair: pair}
	start := p.now()
	defer func() { pr.Duration = p.now().Sub(start) }()

	pages, err := p.deps.Source.FetchAll(ctx, pair.City, pair.State)
	if err != nil {
		return pr, nil, eris.Wrapf(err, "pipeline: fetch %s, %s", pair.City, pair.State)
	}
	pr.Pages = len(pages)
	if len(pages) == 0 {
		log.Info("pipeline: no listings")
		return pr, nil, nil
	}

	res, err := p.deps.Extractor.Extract(pages, pair.City, pair.State)
	if err != nil {
		return pr, nil, eris.Wrapf(err, "pipeline: extract %s, %s", pair.City, pair.State)
	}
	pr.Venues = len(res.Venues)
	pr.SkippedRows = len(res.SkippedRows)
	pr.PageErrors = len(res.PageErrors)

	// Venues without a zipcode never reach the output, cached or not.
	eligible := make([]model.Venue, 0, len(res.Venues))
	noZip := 0
	for _, v := range res.Venues {
		if v.Geocodable() {
			eligible = append(eligible, v)
		} else {
			noZip++
		}
	}

	part, err := cache.Partition(ctx, p.deps.Store, eligible)
	if err != nil {
		return pr, nil, eris.Wrapf(err, "pipeline: cache lookup %s, %s", pair.City, pair.State)
	}
	pr.CacheHits = len(part.Known)
	pr.RatingUpdates = part.RatingUpdates

	geocoded, stats, err := p.geocoder.Resolve(ctx, part.Pending)
	pr.Geocode = *stats
	pr.Geocode.NoZipcode += noZip
	if err != nil {
		return pr, nil, eris.Wrapf(err, "pipeline: geocode %s, %s", pair.City, pair.State)
	}

	venues := make([]model.ResolvedVenue, 0, len(part.Known)+len(geocoded))
	venues = append(venues, part.Known...)
	venues = append(venues, geocoded...)
	pr.Features = len(venues)

	log.Info("pipeline: pair complete",
		zap.Int("pages", pr.Pages),
		zap.Int("venues", pr.Venues),
		zap.Int("cache_hits", pr.CacheHits),
		zap.Int("geocoded", stats.Resolved),
		zap.Int("skipped_rows", pr.SkippedRows),
		zap.Int("page_errors", pr.PageErrors),
	)
	return pr, venues, nil
}
