package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	results map[string]GeocodingResult
	errs    map[string]error
	calls   map[string]int
}

func newMockGeocoder() *mockGeocoder {
	return &mockGeocoder{
		results: make(map[string]GeocodingResult),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *mockGeocoder) Geocode(_ context.Context, query string) (GeocodingResult, error) {
	m.calls[query]++
	if err, ok := m.errs[query]; ok {
		return GeocodingResult{}, err
	}
	return m.results[query], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestGeocodeSightings(t *testing.T) {
	geo := newMockGeocoder()
	geo.results["Los Banos, Laguna, Philippines"] = GeocodingResult{Found: true, Lat: 14.17, Lon: 121.24}
	geo.errs["Quezon, Metro Manila, Philippines"] = errors.New("context deadline exceeded")

	rows := []Sighting{
		{Date: day("2023-01-01"), Species: "A", Location: "Los Banos, Laguna, Philippines"},
		{Date: day("2023-01-02"), Species: "B", Location: "Quezon, Metro Manila, Philippines"},
		{Date: day("2023-01-03"), Species: "A", Location: "Los Banos, Laguna, Philippines"},
		{Date: day("2023-01-04"), Species: "C", Location: "Nowhere, Philippines"},
		{Date: day("2023-01-05"), Species: "C", Location: "Quezon, Metro Manila, Philippines"},
	}

	got, report := GeocodeSightings(context.Background(), rows, geo, discardLogger())

	require.Len(t, got, len(rows))
	require.NotNil(t, got[0].Coords)
	assert.Equal(t, Coordinates{Lat: 14.17, Lon: 121.24}, *got[0].Coords)
	require.NotNil(t, got[2].Coords)
	assert.Nil(t, got[1].Coords)
	assert.Nil(t, got[3].Coords)
	assert.Nil(t, got[4].Coords)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 3, report.Unique)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, []string{"Nowhere, Philippines", "Quezon, Metro Manila, Philippines"}, report.Failed)

	for q, n := range geo.calls {
		assert.Equal(t, 1, n, "query %q", q)
	}
}

func TestGeocodeSightings_DoesNotShareCoordinates(t *testing.T) {
	geo := newMockGeocoder()
	geo.results["X"] = GeocodingResult{Found: true, Lat: 1, Lon: 2}
	rows := []Sighting{{Location: "X"}, {Location: "X"}}

	got, _ := GeocodeSightings(context.Background(), rows, geo, discardLogger())
	got[0].Coords.Lat = 99

	assert.Equal(t, 1.0, got[1].Coords.Lat)
	assert.Nil(t, rows[0].Coords)
}
