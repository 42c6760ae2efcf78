package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// PairReport summarizes one (city, state) pair.
type PairReport struct {
	Pair
	Pages         int           `json:"pages"`
	Venues        int           `json:"venues"`
	SkippedRows   int           `json:"skipped_rows"`
	PageErrors    int           `json:"page_errors"`
	CacheHits     int           `json:"cache_hits"`
	RatingUpdates int           `json:"rating_updates"`
	Geocode       GeocodeStats  `json:"geocode"`
	Features      int           `json:"features"`
	Duration      time.Duration `json:"duration"`
}

// Report summarizes a run.
type Report struct {
	RunID      string       `json:"run_id"`
	Identifier string       `json:"identifier"`
	Path       string       `json:"path"`
	Features   int          `json:"features"`
	Pairs      []PairReport `json:"pairs"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Geocode sums the geocode stats across pairs.
func (r *Report) Geocode() GeocodeStats {
	var total GeocodeStats
	for _, p := range r.Pairs {
		total.Add(p.Geocode)
	}
	return total
}

// Format renders the report for the terminal.
func (r *Report) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	if r.Path != "" {
		fmt.Fprintf(&b, "Output: %s (%d features)\n", r.Path, r.Features)
	}
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}

	b.WriteString("\n")
	for _, p := range r.Pairs {
		fmt.Fprintf(&b, "- %s, %s: %d pages, %d venues, %d cached, %d geocoded",
			p.City, p.State, p.Pages, p.Venues, p.CacheHits, p.Geocode.Resolved)
		if p.SkippedRows > 0 || p.PageErrors > 0 {
			fmt.Fprintf(&b, " (%d rows skipped, %d pages skipped)", p.SkippedRows, p.PageErrors)
		}
		b.WriteString("\n")
	}

	g := r.Geocode()
	fmt.Fprintf(&b, "\nGeocode: %d requested, %d resolved, %d unmatched, %d failed, %d without zipcode\n",
		g.Requested, g.Resolved, g.Unmatched, g.Failed, g.NoZipcode)
	return b.String()
}
