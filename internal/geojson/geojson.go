// Package geojson turns resolved venues into GeoJSON features and writes
// feature collections to disk.
package geojson

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/model"
)

// Mode selects how Write treats an existing file.
type Mode string

const (
	// ModeReplace writes a fresh collection atomically. Default.
	ModeReplace Mode = "replace"
	// ModeMerge folds the new features into the existing collection,
	// replacing features with the same name and city.
	ModeMerge Mode = "merge"
	// ModeAppend appends the serialized collection to the file. Repeated
	// runs leave several JSON values in one file, which most readers
	// reject.
	ModeAppend Mode = "append"
)

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = eris.New("geojson: unknown write mode")

// ParseMode converts a flag or config value to a Mode. Empty means replace.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeReplace, nil
	case ModeReplace, ModeMerge, ModeAppend:
		return m, nil
	}
	return "", eris.Wrapf(ErrUnknownMode, "mode %q", s)
}

// NewFeature builds a Point feature for a resolved venue.
func NewFeature(rv model.ResolvedVenue) *geomjson.Feature {
	categories := rv.Categories
	if categories == nil {
		categories = []string{}
	}

	var rating any
	if p := rv.Rating.Ptr(); p != nil {
		rating = *p
	}

	return &geomjson.Feature{
		Geometry: geom.NewPointFlat(geom.XY, []float64{rv.Location.Longitude, rv.Location.Latitude}),
		Properties: map[string]any{
			"name":       rv.Name,
			"city":       rv.City,
			"state":      rv.State,
			"rating":     rating,
			"categories": categories,
		},
	}
}

// NewFeatures maps NewFeature over venues.
func NewFeatures(venues []model.ResolvedVenue) []*geomjson.Feature {
	out := make([]*geomjson.Feature, 0, len(venues))
	for _, v := range venues {
		out = append(out, NewFeature(v))
	}
	return out
}

// NewCollection wraps features and sets the collection bounding box. An
// empty collection carries no bbox.
func NewCollection(features []*geomjson.Feature) *geomjson.FeatureCollection {
	if features == nil {
		features = []*geomjson.Feature{}
	}
	fc := &geomjson.FeatureCollection{Features: features}

	var bounds *geom.Bounds
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if bounds == nil {
			bounds = geom.NewBounds(geom.XY)
		}
		bounds.Extend(f.Geometry)
	}
	fc.BBox = bounds
	return fc
}

// Filename returns identifier with a .json suffix.
func Filename(identifier string) string {
	if strings.HasSuffix(identifier, ".json") {
		return identifier
	}
	return identifier + ".json"
}

// Write serializes features to path according to mode and returns the
// number of features in the resulting document.
func Write(path string, features []*geomjson.Feature, mode Mode) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "geojson: create dir for %s", path)
	}

	switch mode {
	case ModeMerge:
		existing, err := Read(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			existing = NewCollection(nil)
		case err != nil:
			return 0, eris.Wrapf(err, "geojson: merge into %s", path)
		}
		features = merge(existing.Features, features)
		return len(features), writeAtomic(path, NewCollection(features))

	case ModeAppend:
		zap.L().Warn("geojson: appending collection; file will hold concatenated documents",
			zap.String("path", path),
		)
		return len(features), appendTo(path, NewCollection(features))

	case ModeReplace, "":
		return len(features), writeAtomic(path, NewCollection(features))
	}
	return 0, eris.Wrapf(ErrUnknownMode, "mode %q", mode)
}

// Read decodes the single feature collection stored at path. Trailing data
// after the collection is an error.
func Read(path string) (*geomjson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec := json.NewDecoder(f)
	var fc geomjson.FeatureCollection
	if err := dec.Decode(&fc); err != nil {
		return nil, eris.Wrapf(err, "geojson: decode %s", path)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, eris.Errorf("geojson: trailing data after collection in %s", path)
	}
	return &fc, nil
}

// FeatureKey returns the name and city properties that identify a venue.
func FeatureKey(f *geomjson.Feature) model.VenueKey {
	name, _ := f.Properties["name"].(string)
	city, _ := f.Properties["city"].(string)
	return model.VenueKey{Name: name, City: city}
}

// merge keeps the order of existing features, replaces those whose key
// appears in incoming, then appends the remaining incoming features.
func merge(existing, incoming []*geomjson.Feature) []*geomjson.Feature {
	byKey := make(map[model.VenueKey]*geomjson.Feature, len(incoming))
	for _, f := range incoming {
		byKey[FeatureKey(f)] = f
	}

	out := make([]*geomjson.Feature, 0, len(existing)+len(incoming))
	used := make(map[model.VenueKey]bool, len(incoming))
	for _, f := range existing {
		k := FeatureKey(f)
		if repl, ok := byKey[k]; ok {
			if !used[k] {
				out = append(out, repl)
				used[k] = true
			}
			continue
		}
		out = append(out, f)
	}
	for _, f := range incoming {
		k := FeatureKey(f)
		if used[k] {
			continue
		}
		out = append(out, byKey[k])
		used[k] = true
	}
	return out
}

func encode(fc *geomjson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: encode collection")
	}
	return data, nil
}

func writeAtomic(path string, fc *geomjson.FeatureCollection) error {
	data, err := encode(fc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return eris.Wrapf(err, "geojson: create temp for %s", path)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "geojson: write %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "geojson: sync %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "geojson: close %s", tmpPath)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return eris.Wrapf(err, "geojson: chmod %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrapf(err, "geojson: rename to %s", path)
	}
	return nil
}

func appendTo(path string, fc *geomjson.FeatureCollection) error {
	data, err := encode(fc)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "geojson: open %s for append", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "geojson: append %s", path)
	}
	return eris.Wrapf(f.Close(), "geojson: close %s", path)
}
