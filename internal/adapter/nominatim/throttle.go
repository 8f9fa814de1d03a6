package nominatim

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// ThrottledGeocoder spaces calls to the inner geocoder at least delay apart.
// The first call is never delayed.
type ThrottledGeocoder struct {
	inner domain.Geocoder
	delay time.Duration
	clock clockwork.Clock

	mu   sync.Mutex
	last time.Time
}

// NewThrottledGeocoder wraps inner with a fixed minimum spacing. A nil clock
// uses the real clock.
func NewThrottledGeocoder(inner domain.Geocoder, delay time.Duration, clock clockwork.Clock) *ThrottledGeocoder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ThrottledGeocoder{inner: inner, delay: delay, clock: clock}
}

func (t *ThrottledGeocoder) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if wait := t.delay - t.clock.Since(t.last); wait > 0 {
			select {
			case <-t.clock.After(wait):
			case <-ctx.Done():
				return domain.GeocodingResult{}, ctx.Err()
			}
		}
	}
	defer func() { t.last = t.clock.Now() }()
	return t.inner.Geocode(ctx, query)
}
