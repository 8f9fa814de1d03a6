package nominatim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/observability"
)

type countingGeocoder struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]domain.GeocodingResult
	err     error
}

func newCountingGeocoder() *countingGeocoder {
	return &countingGeocoder{calls: map[string]int{}, results: map[string]domain.GeocodingResult{}}
}

func (g *countingGeocoder) Geocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[query]++
	if g.err != nil {
		return domain.GeocodingResult{}, g.err
	}
	return g.results[query], nil
}

func (g *countingGeocoder) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := newCountingGeocoder()
	inner.results["Bacoor"] = domain.GeocodingResult{Found: true, Lat: 14.45, Lon: 120.94}
	m := observability.NewMetricsForTesting()
	c := NewCachedGeocoder(inner, m)

	for range 3 {
		r, err := c.Geocode(context.Background(), "Bacoor")
		require.NoError(t, err)
		assert.Equal(t, 14.45, r.Lat)
	}

	assert.Equal(t, 1, inner.calls["Bacoor"])
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("memory", "miss")))
}

func TestCachedGeocoder_MemoizesMisses(t *testing.T) {
	inner := newCountingGeocoder()
	c := NewCachedGeocoder(inner, observability.NewMetricsForTesting())

	for range 2 {
		r, err := c.Geocode(context.Background(), "Nowhere")
		require.NoError(t, err)
		assert.False(t, r.Found)
	}
	assert.Equal(t, 1, inner.calls["Nowhere"])
}

func TestCachedGeocoder_MemoizesErrors(t *testing.T) {
	inner := newCountingGeocoder()
	inner.err = errors.New("status 503")
	c := NewCachedGeocoder(inner, observability.NewMetricsForTesting())

	_, err1 := c.Geocode(context.Background(), "Bacoor")
	_, err2 := c.Geocode(context.Background(), "Bacoor")
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, 1, inner.total())
}

func TestCachedGeocoder_CanceledNotMemoized(t *testing.T) {
	inner := newCountingGeocoder()
	c := NewCachedGeocoder(inner, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = c.Geocode(ctx, "Bacoor")
	_, _ = c.Geocode(context.Background(), "Bacoor")
	assert.Equal(t, 2, inner.calls["Bacoor"])
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := newCountingGeocoder()
	c := NewCachedGeocoder(inner, observability.NewMetricsForTesting())

	_, _ = c.Geocode(context.Background(), "Bacoor")
	_, _ = c.Geocode(context.Background(), "bacoor")
	assert.Equal(t, 2, inner.total())
}

func TestThrottledGeocoder_SpacesCalls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := newCountingGeocoder()
	g := NewThrottledGeocoder(inner, 1500*time.Millisecond, clock)
	ctx := context.Background()

	_, err := g.Geocode(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.total())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Geocode(ctx, "second")
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, inner.total())

	clock.Advance(1500 * time.Millisecond)
	<-done
	assert.Equal(t, 2, inner.total())
}

func TestThrottledGeocoder_NoWaitAfterDelayElapsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := newCountingGeocoder()
	g := NewThrottledGeocoder(inner, time.Second, clock)

	_, _ = g.Geocode(context.Background(), "first")
	clock.Advance(2 * time.Second)
	_, _ = g.Geocode(context.Background(), "second")
	assert.Equal(t, 2, inner.total())
}

func TestThrottledGeocoder_Canceled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := newCountingGeocoder()
	g := NewThrottledGeocoder(inner, time.Minute, clock)

	_, _ = g.Geocode(context.Background(), "first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Geocode(ctx, "second")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.total())
}
