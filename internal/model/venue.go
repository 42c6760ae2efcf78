package model

import (
	"strings"
	"time"
)

// Venue is one listing scraped from the directory source.
type Venue struct {
	Name       string   `json:"name"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Street     string   `json:"street"`
	Zipcode    string   `json:"zipcode"`
	Categories []string `json:"categories"`
	Rating     Rating   `json:"rating"`
}

// VenueKey identifies a venue in the geocode cache. Comparison is exact:
// case and whitespace matter.
type VenueKey struct {
	Name string
	City string
}

// Key returns the cache key for the venue.
func (v Venue) Key() VenueKey {
	return VenueKey{Name: v.Name, City: v.City}
}

// Geocodable reports whether the venue carries enough address data to be
// sent to a geocoder. Only venues with a zipcode qualify.
func (v Venue) Geocodable() bool {
	return v.Zipcode != ""
}

// Query returns the free-text geocoding query for the venue.
func (v Venue) Query() string {
	return strings.TrimSpace(strings.TrimSpace(v.Street) + " " + v.Zipcode)
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// ResolvedVenue is a venue with coordinates attached.
type ResolvedVenue struct {
	Venue
	Location Location `json:"location"`
}

// Resolve attaches a location to a venue without touching the input.
func Resolve(v Venue, loc Location) ResolvedVenue {
	v.Categories = append([]string(nil), v.Categories...)
	return ResolvedVenue{Venue: v, Location: loc}
}

// CacheRecord is the persisted geocode fact for a venue. Coordinates never
// expire; the rating is refreshed when the source reports a new one.
type CacheRecord struct {
	Name      string    `json:"name"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Rating    Rating    `json:"rating"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the record's cache key.
func (c CacheRecord) Key() VenueKey {
	return VenueKey{Name: c.Name, City: c.City}
}

// Location returns the cached coordinates.
func (c CacheRecord) Location() Location {
	return Location{Longitude: c.Longitude, Latitude: c.Latitude}
}

// NewCacheRecord builds the cache record for a freshly resolved venue.
func NewCacheRecord(rv ResolvedVenue) CacheRecord {
	return CacheRecord{
		Name:      rv.Name,
		City:      rv.City,
		State:     rv.State,
		Rating:    rv.Rating,
		Longitude: rv.Location.Longitude,
		Latitude:  rv.Location.Latitude,
	}
}
