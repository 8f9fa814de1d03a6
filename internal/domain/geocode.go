package domain

import (
	"context"
	"log/slog"
	"slices"
)

// GeocodeReport summarizes a geocoding pass.
type GeocodeReport struct {
	Total    int
	Unique   int // distinct locations looked up
	Resolved int // rows that received coordinates
	Failed   []string
}

// GeocodeSightings attaches coordinates to each sighting by resolving its
// location. Lookups are issued once per distinct location. A provider error
// or an empty answer leaves Coords nil and adds the location to the sorted
// failure list; neither is fatal.
func GeocodeSightings(ctx context.Context, rows []Sighting, geocoder Geocoder, logger *slog.Logger) ([]Sighting, GeocodeReport) {
	report := GeocodeReport{Total: len(rows)}
	resolved := make(map[string]*Coordinates)
	failed := make(map[string]struct{})

	out := make([]Sighting, len(rows))
	for i, r := range rows {
		out[i] = r
		if r.Location == "" {
			continue
		}

		coords, seen := resolved[r.Location]
		if !seen {
			coords = lookup(ctx, geocoder, r.Location, logger)
			resolved[r.Location] = coords
			if coords == nil {
				failed[r.Location] = struct{}{}
			}
		}
		if coords != nil {
			c := *coords
			out[i].Coords = &c
			report.Resolved++
		}
	}

	report.Unique = len(resolved)
	for loc := range failed {
		report.Failed = append(report.Failed, loc)
	}
	slices.Sort(report.Failed)
	return out, report
}

func lookup(ctx context.Context, geocoder Geocoder, location string, logger *slog.Logger) *Coordinates {
	result, err := geocoder.Geocode(ctx, location)
	if err != nil {
		logger.Warn("geocoding failed", "location", location, "error", err)
		return nil
	}
	if !result.Found {
		logger.Debug("location not found", "location", location)
		return nil
	}
	return &Coordinates{Lat: result.Lat, Lon: result.Lon}
}
