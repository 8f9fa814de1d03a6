// Package pipeline runs the file-to-file stages of the sightings pipeline.
// Each stage reads its inputs, validates their columns, transforms them in
// memory, and writes its outputs.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cobrasdm/sightings-etl/internal/adapter/csvio"
	"github.com/cobrasdm/sightings-etl/internal/config"
	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/observability"
)

// Fixed output names, relative to Options.OutputDir.
const (
	AssignedFile      = "barangay_sightings.csv"
	DailyCountsFile   = "daily_counts.csv"
	GridFile          = "daily_time_grid.csv"
	RedistributedFile = "redistributed_counts.csv"
	CleanCountsFile   = "clean_counts.csv"
	CleanEnvFile      = "clean_env.csv"
	ModelRawFile      = "model_dataset_raw.csv"
	ModelFile         = "model_dataset.csv"
	ScaledFile        = "model_dataset_scaled.csv"
	ScalerFile        = "feature_scaler.json"
)

// Options are the stage settings derived from configuration.
type Options struct {
	OutputDir    string
	CleanWindow  domain.Window
	GridWindow   domain.Window
	Normalizer   domain.NormalizerConfig
	Redistribute domain.RedistributeConfig
	Impute       domain.ImputeConfig
}

// OptionsFromConfig converts loaded configuration into stage options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:    cfg.OutputDir,
		CleanWindow:  cfg.CleanWindow(),
		GridWindow:   cfg.GridWindow(),
		Normalizer:   domain.DefaultNormalizerConfig(),
		Redistribute: cfg.Redistribute(),
		Impute:       cfg.Impute(),
	}
}

// Runner executes stages with shared logging, metrics, and options.
type Runner struct {
	opts       Options
	normalizer *domain.LocationNormalizer
	geocoder   domain.Geocoder
	logger     *slog.Logger
	metrics    *observability.Metrics
	out        io.Writer
}

// New creates a Runner. geocoder may be nil when the geocode stage is not
// used. out receives the plain-text output of the units and validate stages.
func New(opts Options, geocoder domain.Geocoder, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) (*Runner, error) {
	n, err := domain.NewLocationNormalizer(opts.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("build location normalizer: %w", err)
	}
	return &Runner{
		opts:       opts,
		normalizer: n,
		geocoder:   geocoder,
		logger:     logger,
		metrics:    metrics,
		out:        out,
	}, nil
}

// OutputPath returns the location of a fixed-name stage output.
func (r *Runner) OutputPath(name string) string {
	return filepath.Join(r.opts.OutputDir, name)
}

// run wraps one stage with start logging and duration and failure metrics.
func (r *Runner) run(ctx context.Context, stage string, fn func(context.Context, *slog.Logger) error) error {
	logger := r.logger.With("stage", stage)
	logger.Info("stage started")

	start := time.Now()
	err := fn(ctx, logger)
	r.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.StageFailures.WithLabelValues(stage).Inc()
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func (r *Runner) dropped(stage, reason string, n int) {
	if n > 0 {
		r.metrics.RowsDropped.WithLabelValues(stage, reason).Add(float64(n))
	}
}

func (r *Runner) recordMissing(stage string, m domain.Missing, logger *slog.Logger) {
	attrs := make([]any, 0, 2*domain.NumVariables)
	for _, v := range domain.Variables() {
		r.metrics.EnvMissing.WithLabelValues(stage, v.Column()).Set(float64(m[v]))
		attrs = append(attrs, v.Column(), m[v])
	}
	logger.Info("missing environmental values", attrs...)
}

func read[T any](r *Runner, stage, path string, required []string) ([]T, error) {
	rows, err := csvio.ReadRows[T](path, required)
	if err != nil {
		return nil, err
	}
	r.metrics.RowsRead.WithLabelValues(stage).Add(float64(len(rows)))
	return rows, nil
}

func write[T any](r *Runner, stage, path string, rows []T) error {
	if err := csvio.WriteRows(path, rows); err != nil {
		return err
	}
	r.metrics.RowsWritten.WithLabelValues(stage).Add(float64(len(rows)))
	return nil
}
