package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// NoRatingGlyph is the literal the listing source prints for unrated venues.
const NoRatingGlyph = "-"

// Rating is a nullable venue score. The zero value is "no rating", which is
// distinct from a score of 0.
type Rating struct {
	Value float64
	Valid bool
}

// NoRating returns the explicit absent rating.
func NoRating() Rating { return Rating{} }

// RatingOf returns a present rating with the given score.
func RatingOf(v float64) Rating { return Rating{Value: v, Valid: true} }

// ParseRating converts a rating cell to a Rating. The no-rating glyph maps to
// NoRating; anything else must parse as a finite float.
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if s == NoRatingGlyph {
		return NoRating(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NoRating(), eris.Wrapf(err, "rating: parse %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoRating(), eris.Errorf("rating: %q is not a finite number", s)
	}
	return RatingOf(v), nil
}

// Equal reports whether two ratings carry the same value. Two absent ratings
// are equal.
func (r Rating) Equal(o Rating) bool {
	if r.Valid != o.Valid {
		return false
	}
	return !r.Valid || r.Value == o.Value
}

// Ptr returns the score as a pointer, nil when absent. Used for nullable
// database columns and GeoJSON properties.
func (r Rating) Ptr() *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// RatingFromPtr is the inverse of Ptr.
func RatingFromPtr(p *float64) Rating {
	if p == nil {
		return NoRating()
	}
	return RatingOf(*p)
}

func (r Rating) String() string {
	if !r.Valid {
		return "null"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON encodes an absent rating as null.
func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts null or a number.
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = NoRating()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "rating: unmarshal")
	}
	*r = RatingOf(v)
	return nil
}
