package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string
	OutputDir string

	CleanStart time.Time
	CleanEnd   time.Time // zero means today
	GridStart  time.Time
	GridEnd    time.Time

	// Nominatim geocoding configuration.
	NominatimURL       string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeDelay       time.Duration
	GeocodeCacheDB     string

	RedistributeWindow int
	RedistributeSeed   uint64

	ImputeMaxGapDays     int
	ImputeFillTrailing   bool
	ImputeGlobalBackfill bool

	Workers int

	PushgatewayURL string
	PushgatewayJob string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:           strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		OutputDir:          sharedcfg.EnvOrDefault("OUTPUT_DIR", "data"),
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "cobra-sdm-thesis-geocoder"),
		GeocodeCacheDB:     sharedcfg.EnvOrDefault("GEOCODE_CACHE_DB", ""),
		PushgatewayURL:     sharedcfg.EnvOrDefault("PUSHGATEWAY_URL", ""),
		PushgatewayJob:     sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "sightings_etl"),
	}

	var err error
	if cfg.CleanStart, err = parseDate("CLEAN_START_DATE", "2000-01-01"); err != nil {
		return nil, err
	}
	if cfg.CleanEnd, err = parseDate("CLEAN_END_DATE", ""); err != nil {
		return nil, err
	}
	if cfg.GridStart, err = parseDate("GRID_START_DATE", "2022-01-01"); err != nil {
		return nil, err
	}
	if cfg.GridEnd, err = parseDate("GRID_END_DATE", "2026-01-31"); err != nil {
		return nil, err
	}
	if cfg.GeocodeTimeout, err = parseDuration("GEOCODE_TIMEOUT", "5s", false); err != nil {
		return nil, err
	}
	if cfg.GeocodeDelay, err = parseDuration("GEOCODE_DELAY", "1.5s", true); err != nil {
		return nil, err
	}
	if cfg.RedistributeWindow, err = parseInt("REDISTRIBUTE_WINDOW", "14", 1); err != nil {
		return nil, err
	}
	if cfg.ImputeMaxGapDays, err = parseInt("IMPUTE_MAX_GAP_DAYS", "0", 0); err != nil {
		return nil, err
	}
	if cfg.Workers, err = parseInt("WORKERS", "4", 1); err != nil {
		return nil, err
	}
	if cfg.ImputeFillTrailing, err = parseBool("IMPUTE_FILL_TRAILING", "true"); err != nil {
		return nil, err
	}
	if cfg.ImputeGlobalBackfill, err = parseBool("IMPUTE_GLOBAL_BACKFILL", "true"); err != nil {
		return nil, err
	}

	seed := sharedcfg.EnvOrDefault("REDISTRIBUTE_SEED", "42")
	if cfg.RedistributeSeed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid REDISTRIBUTE_SEED %q", seed)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if _, err := url.ParseRequestURI(c.NominatimURL); err != nil {
		return fmt.Errorf("invalid NOMINATIM_URL: %w", err)
	}
	if c.NominatimUserAgent == "" {
		return errors.New("NOMINATIM_USER_AGENT is required")
	}
	if err := c.CleanWindow().Validate(); err != nil {
		return fmt.Errorf("CLEAN_START_DATE/CLEAN_END_DATE: %w", err)
	}
	if err := c.GridWindow().Validate(); err != nil {
		return fmt.Errorf("GRID_START_DATE/GRID_END_DATE: %w", err)
	}
	return nil
}

// CleanWindow is the inclusive date range kept by the clean stage.
func (c *Config) CleanWindow() domain.Window {
	return domain.Window{Start: c.CleanStart, End: c.CleanEnd}
}

// GridWindow is the inclusive date range of the completed count grid.
func (c *Config) GridWindow() domain.Window {
	return domain.Window{Start: c.GridStart, End: c.GridEnd}
}

// Redistribute returns the options of the redistribute stage.
func (c *Config) Redistribute() domain.RedistributeConfig {
	return domain.RedistributeConfig{
		Window:  c.RedistributeWindow,
		Seed:    c.RedistributeSeed,
		Workers: c.Workers,
	}
}

// Impute returns the options of the impute stage.
func (c *Config) Impute() domain.ImputeConfig {
	return domain.ImputeConfig{
		MaxGapDays:     c.ImputeMaxGapDays,
		FillTrailing:   c.ImputeFillTrailing,
		GlobalBackfill: c.ImputeGlobalBackfill,
		Workers:        c.Workers,
	}
}

func parseDate(key, def string) (time.Time, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", key, s)
	}
	return t, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseInt(key, def string, minimum int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s %q: must be an integer >= %d", key, s, minimum)
	}
	return n, nil
}

func parseBool(key, def string) (bool, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return b, nil
}
