//go:build nominatim

package nominatim

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrasdm/sightings-etl/internal/observability"
)

// These tests hit the public Nominatim API. Set NOMINATIM_USER_AGENT to an
// identifying string and keep runs rare to respect the usage policy.
// Run with: go test -tags=nominatim ./internal/adapter/nominatim/ -v -count=1

func smokeGeocoder(t *testing.T) *ThrottledGeocoder {
	t.Helper()
	agent := os.Getenv("NOMINATIM_USER_AGENT")
	if agent == "" {
		t.Fatal("NOMINATIM_USER_AGENT must be set to run smoke tests")
	}
	c := NewClient("https://nominatim.openstreetmap.org/search", agent, 10*time.Second,
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewThrottledGeocoder(c, 1500*time.Millisecond, nil)
}

func TestSmoke_Geocode(t *testing.T) {
	g := smokeGeocoder(t)

	result, err := g.Geocode(context.Background(), "Quezon City, Philippines")
	require.NoError(t, err)

	require.True(t, result.Found)
	assert.InDelta(t, 14.65, result.Lat, 0.2)
	assert.InDelta(t, 121.05, result.Lon, 0.2)
	assert.Contains(t, result.DisplayName, "Quezon City")
}

func TestSmoke_GeocodeNoMatch(t *testing.T) {
	g := smokeGeocoder(t)

	result, err := g.Geocode(context.Background(), "xyznonexistent99 qqq, Philippines")
	require.NoError(t, err)
	assert.False(t, result.Found)
}
