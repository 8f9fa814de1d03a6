package domain

import "context"

// GeocodingResult is a provider's answer for one query. Found is false when
// the provider returned no match.
type GeocodingResult struct {
	Found       bool
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a canonical location string to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
