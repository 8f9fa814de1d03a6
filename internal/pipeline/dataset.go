package pipeline

import (
	"context"
	"log/slog"

	"github.com/cobrasdm/sightings-etl/internal/adapter/csvio"
	"github.com/cobrasdm/sightings-etl/internal/domain"
)

func (r *Runner) readEnv(stage, path string) ([]domain.EnvRecord, error) {
	rows, err := read[csvio.EnvRow](r, stage, path, csvio.EnvColumns)
	if err != nil {
		return nil, err
	}
	records, bad := csvio.ToEnv(rows)
	r.dropped(stage, "bad_env_row", bad)
	return records, nil
}

func (r *Runner) readModel(stage, path string) ([]domain.ModelRow, int, error) {
	rows, err := read[csvio.ModelRow](r, stage, path, csvio.ModelColumns)
	if err != nil {
		return nil, 0, err
	}
	out, bad := csvio.ToModelRows(rows)
	r.dropped(stage, "bad_row", bad)
	return out, bad, nil
}

// Harmonize coerces keys of the count and environment tables, drops
// duplicate keys, and writes OUTPUT_DIR/clean_counts.csv and
// OUTPUT_DIR/clean_env.csv.
func (r *Runner) Harmonize(ctx context.Context, countsPath, envPath string) (domain.HarmonizeReport, error) {
	const stage = "harmonize"
	var report domain.HarmonizeReport
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		if err := csvio.CheckColumns(csvio.CountColumns, countsPath); err != nil {
			return err
		}
		if err := csvio.CheckColumns(csvio.EnvColumns, envPath); err != nil {
			return err
		}
		cells, _, err := r.readCounts(stage, countsPath)
		if err != nil {
			return err
		}
		records, err := r.readEnv(stage, envPath)
		if err != nil {
			return err
		}

		cells, records, report = domain.Harmonize(cells, records)
		r.dropped(stage, "duplicate_count", report.CountDuplicates)
		r.dropped(stage, "duplicate_env", report.EnvDuplicates)

		if err := write(r, stage, r.OutputPath(CleanCountsFile), csvio.FromCounts(cells)); err != nil {
			return err
		}
		if err := write(r, stage, r.OutputPath(CleanEnvFile), csvio.FromEnv(records)); err != nil {
			return err
		}
		r.recordMissing(stage, report.EnvMissing, logger)
		logger.Info("stage complete",
			"counts", len(cells),
			"env_records", len(records),
			"count_duplicates", report.CountDuplicates,
			"env_duplicates", report.EnvDuplicates,
		)
		return nil
	})
	return report, err
}

// Fuse left-joins environment records onto count cells, writing
// OUTPUT_DIR/model_dataset_raw.csv.
func (r *Runner) Fuse(ctx context.Context, countsPath, envPath string) (domain.FuseReport, error) {
	const stage = "fuse"
	var report domain.FuseReport
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		if err := csvio.CheckColumns(csvio.CountColumns, countsPath); err != nil {
			return err
		}
		if err := csvio.CheckColumns(csvio.EnvColumns, envPath); err != nil {
			return err
		}
		cells, _, err := r.readCounts(stage, countsPath)
		if err != nil {
			return err
		}
		records, err := r.readEnv(stage, envPath)
		if err != nil {
			return err
		}

		rows, rep := domain.Fuse(cells, records)
		report = rep
		if err := write(r, stage, r.OutputPath(ModelRawFile), csvio.FromModelRows(rows)); err != nil {
			return err
		}
		r.recordMissing(stage, rep.Missing, logger)
		logger.Info("stage complete", "rows", rep.Rows, "unmatched", rep.Unmatched)
		return nil
	})
	return report, err
}

// Impute fills environmental gaps per admin unit, writing
// OUTPUT_DIR/model_dataset.csv.
func (r *Runner) Impute(ctx context.Context, in string) (domain.ImputeReport, error) {
	const stage = "impute"
	var report domain.ImputeReport
	err := r.run(ctx, stage, func(ctx context.Context, logger *slog.Logger) error {
		rows, _, err := r.readModel(stage, in)
		if err != nil {
			return err
		}
		out, rep, err := domain.Impute(ctx, rows, r.opts.Impute)
		if err != nil {
			return err
		}
		report = rep

		if err := write(r, stage, r.OutputPath(ModelFile), csvio.FromModelRows(out)); err != nil {
			return err
		}
		r.recordMissing(stage, rep.Remaining, logger)
		if len(rep.Uncovered) > 0 {
			logger.Warn("admin units without full environmental coverage",
				"units", len(rep.Uncovered),
				"codes", rep.Uncovered,
			)
		}
		logger.Info("stage complete",
			"rows", len(out),
			"units", rep.Units,
			"filled", rep.Filled.Total(),
			"remaining", rep.Remaining.Total(),
		)
		return nil
	})
	return report, err
}

// Normalize min-max scales the environmental features, writing
// OUTPUT_DIR/model_dataset_scaled.csv and the scaler parameters to
// OUTPUT_DIR/feature_scaler.json.
func (r *Runner) Normalize(ctx context.Context, in string) (domain.Scaler, error) {
	const stage = "normalize"
	var scaler domain.Scaler
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		rows, _, err := r.readModel(stage, in)
		if err != nil {
			return err
		}
		s := domain.FitScaler(rows)
		if err := s.Apply(rows); err != nil {
			return err
		}

		if err := write(r, stage, r.OutputPath(ScaledFile), csvio.FromModelRows(rows)); err != nil {
			return err
		}
		if err := csvio.SaveScaler(r.OutputPath(ScalerFile), s); err != nil {
			return err
		}
		scaler = s
		logger.Info("stage complete", "rows", len(rows), "features", len(s))
		return nil
	})
	return scaler, err
}
