package nominatim

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/observability"
)

// CachedGeocoder memoizes a Geocoder for the lifetime of a run. Entries never
// expire, and failures are memoized as well, so each distinct query reaches
// the inner geocoder at most once.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *cache.Cache
	metrics *observability.Metrics
}

type cacheEntry struct {
	result domain.GeocodingResult
	err    error
}

// NewCachedGeocoder creates a memo decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		// No cleanup interval: nothing expires, so no janitor goroutine.
		cache:   cache.New(cache.NoExpiration, 0),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	if v, ok := c.cache.Get(query); ok {
		c.metrics.GeocodeCache.WithLabelValues("memory", "hit").Inc()
		e := v.(cacheEntry)
		return e.result, e.err
	}
	c.metrics.GeocodeCache.WithLabelValues("memory", "miss").Inc()

	result, err := c.inner.Geocode(ctx, query)
	if ctx.Err() == nil {
		c.cache.Set(query, cacheEntry{result: result, err: err}, cache.NoExpiration)
	}
	return result, err
}

// Len reports the number of memoized queries.
func (c *CachedGeocoder) Len() int {
	return c.cache.ItemCount()
}
