// Package sqlite persists geocoding answers across runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS geocodes (
    query TEXT PRIMARY KEY,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    resolved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// GeocodeStore is a Geocoder decorator backed by a SQLite table. Only found
// results are stored; misses and errors reach the inner geocoder again on
// the next run.
type GeocodeStore struct {
	db      *sql.DB
	inner   domain.Geocoder
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Open opens (creating if needed) the database at path and wraps inner.
func Open(path string, inner domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) (*GeocodeStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache %s: %w", path, err)
	}
	// One connection, so ":memory:" databases are shared and writes serialize.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate geocode cache: %w", err)
	}
	return &GeocodeStore{db: db, inner: inner, metrics: metrics, logger: logger}, nil
}

// Close closes the database.
func (s *GeocodeStore) Close() error {
	return s.db.Close()
}

func (s *GeocodeStore) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	result, ok, err := s.lookup(ctx, query)
	if err != nil {
		s.logger.Warn("geocode cache read failed", "query", query, "error", err)
	}
	if ok {
		s.metrics.GeocodeCache.WithLabelValues("sqlite", "hit").Inc()
		return result, nil
	}
	s.metrics.GeocodeCache.WithLabelValues("sqlite", "miss").Inc()

	result, err = s.inner.Geocode(ctx, query)
	if err != nil || !result.Found {
		return result, err
	}
	if err := s.save(ctx, query, result); err != nil {
		s.logger.Warn("geocode cache write failed", "query", query, "error", err)
	}
	return result, nil
}

func (s *GeocodeStore) lookup(ctx context.Context, query string) (domain.GeocodingResult, bool, error) {
	var r domain.GeocodingResult
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, display_name FROM geocodes WHERE query = ?`, query,
	).Scan(&r.Lat, &r.Lon, &r.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.Found = true
	return r, true, nil
}

func (s *GeocodeStore) save(ctx context.Context, query string, r domain.GeocodingResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocodes (query, lat, lon, display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			display_name = excluded.display_name,
			resolved_at = CURRENT_TIMESTAMP
	`, query, r.Lat, r.Lon, r.DisplayName)
	return err
}

// Count reports the number of stored queries.
func (s *GeocodeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocodes`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
