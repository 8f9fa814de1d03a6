package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cobrasdm/sightings-etl/internal/adapter/csvio"
	"github.com/cobrasdm/sightings-etl/internal/domain"
)

func (r *Runner) readCounts(stage, path string) ([]domain.DailyCount, int, error) {
	rows, err := read[csvio.CountRow](r, stage, path, csvio.CountColumns)
	if err != nil {
		return nil, 0, err
	}
	cells, bad := csvio.ToCounts(rows)
	r.dropped(stage, "bad_row", bad)
	return cells, bad, nil
}

// Grid expands daily counts into the complete unit x species x day grid for
// the grid window, writing OUTPUT_DIR/daily_time_grid.csv.
func (r *Runner) Grid(ctx context.Context, in string) (domain.GridReport, error) {
	const stage = "grid"
	var report domain.GridReport
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		cells, bad, err := r.readCounts(stage, in)
		if err != nil {
			return err
		}
		grid, rep, err := domain.BuildGrid(cells, r.opts.GridWindow)
		if err != nil {
			return err
		}
		report = rep
		r.dropped(stage, "out_of_window", rep.OutOfWindow)

		if err := write(r, stage, r.OutputPath(GridFile), csvio.FromCounts(grid)); err != nil {
			return err
		}
		logger.Info("stage complete",
			"window", r.opts.GridWindow.String(),
			"bad_rows", bad,
			"observed", rep.Observed,
			"out_of_window", rep.OutOfWindow,
			"admin_units", rep.AdminUnits,
			"species", rep.Species,
			"days", rep.Days,
			"cells", rep.Cells,
		)
		return nil
	})
	return report, err
}

// Redistribute replaces zero cells of a count grid with Poisson draws around
// the local rolling mean, writing OUTPUT_DIR/redistributed_counts.csv.
func (r *Runner) Redistribute(ctx context.Context, in string) (domain.RedistributeReport, error) {
	const stage = "redistribute"
	var report domain.RedistributeReport
	err := r.run(ctx, stage, func(ctx context.Context, logger *slog.Logger) error {
		cells, bad, err := r.readCounts(stage, in)
		if err != nil {
			return err
		}
		out, rep, err := domain.Redistribute(ctx, cells, r.opts.Redistribute)
		if err != nil {
			return err
		}
		report = rep
		r.metrics.RedistributedCells.WithLabelValues("kept").Add(float64(rep.Kept))
		r.metrics.RedistributedCells.WithLabelValues("simulated").Add(float64(rep.Simulated))

		if err := write(r, stage, r.OutputPath(RedistributedFile), csvio.FromCounts(out)); err != nil {
			return err
		}
		logger.Info("stage complete",
			"bad_rows", bad,
			"series", rep.Series,
			"kept", rep.Kept,
			"simulated", rep.Simulated,
			"nonzero_draws", rep.NonZero,
			"window", r.opts.Redistribute.Window,
			"seed", r.opts.Redistribute.Seed,
		)
		return nil
	})
	return report, err
}

// Units writes the sorted unique admin codes of a count file, one per line.
func (r *Runner) Units(ctx context.Context, in string) ([]int64, error) {
	const stage = "units"
	var codes []int64
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		cells, _, err := r.readCounts(stage, in)
		if err != nil {
			return err
		}
		codes = domain.UniqueAdminCodes(cells)
		for _, c := range codes {
			if _, err := fmt.Fprintln(r.out, c); err != nil {
				return err
			}
		}
		logger.Info("stage complete", "admin_units", len(codes))
		return nil
	})
	return codes, err
}
