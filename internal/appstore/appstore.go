// Package appstore implements clients for the storefront ranking endpoint
// and the public metadata lookup endpoint.
//
// The two endpoints disagree: the ranking endpoint returns identifiers in
// authoritative display order but carries no metadata, while the lookup
// endpoint returns rich metadata in no particular order. Callers merge the
// two; this package only fetches.
package appstore

import "time"

// App is one metadata record from the lookup endpoint.
type App struct {
	ID               int64
	BundleID         string
	Title            string
	Developer        string
	Rating           float64
	RatingCount      int64
	FirstReleaseAt   time.Time
	CurrentReleaseAt time.Time
	Version          string
	Genre            string
	FileSizeBytes    int64
	MinimumOSVersion string
	Languages        []string
	AgeRating        string
}

const (
	mediaSoftware  = "software"
	entitySoftware = "software"
)
