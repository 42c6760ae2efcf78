package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReport_Format(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := &Report{
		RunID:      "run-1",
		Identifier: "MA",
		Path:       "out/MA.json",
		Features:   3,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Pairs: []PairReport{
			{
				Pair:      Pair{City: "Boston", State: "MA"},
				Pages:     2,
				Venues:    4,
				CacheHits: 1,
				Geocode:   GeocodeStats{NoZipcode: 1, Requested: 2, Resolved: 2},
			},
			{
				Pair:        Pair{City: "Cambridge", State: "MA"},
				Pages:       1,
				Venues:      1,
				SkippedRows: 1,
				Geocode:     GeocodeStats{Requested: 1, Failed: 1},
			},
		},
	}

	out := r.Format()
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "Output: out/MA.json (3 features)")
	assert.Contains(t, out, "Duration: 1.5s")
	assert.Contains(t, out, "- Boston, MA: 2 pages, 4 venues, 1 cached, 2 geocoded\n")
	assert.Contains(t, out, "- Cambridge, MA: 1 pages, 1 venues, 0 cached, 0 geocoded (1 rows skipped, 0 pages skipped)")
	assert.Contains(t, out, "Geocode: 3 requested, 2 resolved, 0 unmatched, 1 failed, 1 without zipcode")
}

func TestReport_FormatUnfinished(t *testing.T) {
	r := &Report{RunID: "run-2"}
	out := r.Format()
	assert.Contains(t, out, "Run run-2")
	assert.NotContains(t, out, "Output:")
	assert.NotContains(t, out, "Duration:")
}
