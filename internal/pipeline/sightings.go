package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cobrasdm/sightings-etl/internal/adapter/csvio"
	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/spatial"
)

// Clean parses dates, filters them to the clean window, and normalizes
// locations, writing the surviving rows to out.
func (r *Runner) Clean(ctx context.Context, in, out string) (domain.CleanReport, error) {
	const stage = "clean"
	var report domain.CleanReport
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		rows, err := read[csvio.SightingRow](r, stage, in, csvio.CleanColumns)
		if err != nil {
			return err
		}

		cleaned, rep := domain.CleanSightings(csvio.ToRawSightings(rows), r.opts.CleanWindow, r.normalizer)
		report = rep
		r.dropped(stage, "bad_date", rep.BadDates)
		r.dropped(stage, "out_of_window", rep.OutOfWindow)
		r.dropped(stage, "bad_location", rep.BadLocations)

		if err := write(r, stage, out, csvio.FromSightings(cleaned)); err != nil {
			return err
		}
		logger.Info("stage complete",
			"input", rep.Input,
			"output", rep.Output,
			"bad_dates", rep.BadDates,
			"out_of_window", rep.OutOfWindow,
			"bad_locations", rep.BadLocations,
			"window", r.opts.CleanWindow.String(),
		)
		return nil
	})
	return report, err
}

// Geocode adds lat and long columns to every row of in. Unresolved locations
// leave both blank.
func (r *Runner) Geocode(ctx context.Context, in, out string) (domain.GeocodeReport, error) {
	const stage = "geocode"
	var report domain.GeocodeReport
	err := r.run(ctx, stage, func(ctx context.Context, logger *slog.Logger) error {
		if r.geocoder == nil {
			return errors.New("no geocoder configured")
		}
		rows, err := read[csvio.SightingRow](r, stage, in, csvio.GeocodeColumns)
		if err != nil {
			return err
		}

		queries := make([]domain.Sighting, len(rows))
		for i, row := range rows {
			queries[i].Location = strings.TrimSpace(row.Location)
		}
		located, rep := domain.GeocodeSightings(ctx, queries, r.geocoder, logger)
		report = rep
		if err := ctx.Err(); err != nil {
			return err
		}
		r.dropped(stage, "unresolved", rep.Total-rep.Resolved)

		if err := write(r, stage, out, csvio.ToGeocoded(rows, located)); err != nil {
			return err
		}
		logger.Info("stage complete",
			"total", rep.Total,
			"unique_locations", rep.Unique,
			"resolved", rep.Resolved,
			"failed_locations", len(rep.Failed),
		)
		for _, loc := range rep.Failed {
			logger.Warn("location not resolved", "location", loc)
		}
		return nil
	})
	return report, err
}

// Merge concatenates point files into out, keeping date, species, lat, and
// long. Every input is checked before anything is written.
func (r *Runner) Merge(ctx context.Context, out string, inputs ...string) (int, error) {
	const stage = "merge"
	var n int
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		if len(inputs) == 0 {
			return errors.New("no input files")
		}
		if err := csvio.CheckColumns(csvio.PointColumns, inputs...); err != nil {
			return err
		}

		var merged []csvio.PointRow
		for _, in := range inputs {
			rows, err := read[csvio.PointRow](r, stage, in, csvio.PointColumns)
			if err != nil {
				return err
			}
			logger.Debug("input read", "path", in, "rows", len(rows))
			merged = append(merged, rows...)
		}
		if err := write(r, stage, out, merged); err != nil {
			return err
		}
		n = len(merged)
		logger.Info("stage complete", "inputs", len(inputs), "rows", n)
		return nil
	})
	return n, err
}

// Assign attaches an administrative unit from the boundary shapefile to
// every usable point of in, writing OUTPUT_DIR/barangay_sightings.csv.
func (r *Runner) Assign(ctx context.Context, in, shapefile string) (spatial.Report, error) {
	const stage = "assign"
	var report spatial.Report
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		rows, err := read[csvio.PointRow](r, stage, in, csvio.PointColumns)
		if err != nil {
			return err
		}
		units, err := spatial.LoadShapefile(shapefile, logger)
		if err != nil {
			return err
		}
		assigner, err := spatial.NewAssigner(units, logger)
		if err != nil {
			return err
		}

		points, pr := csvio.ToPoints(rows)
		r.dropped(stage, "bad_date", pr.BadDates)
		r.dropped(stage, "no_coordinates", pr.NoCoords)

		assigned, rep, err := assigner.Assign(points)
		if err != nil {
			return err
		}
		report = rep
		r.metrics.Assignments.WithLabelValues(string(domain.AssignedWithin)).Add(float64(rep.Within))
		r.metrics.Assignments.WithLabelValues(string(domain.AssignedNearest)).Add(float64(rep.Nearest))
		r.metrics.PolygonOverlaps.Add(float64(rep.Overlaps))
		for _, a := range assigned {
			if a.DistanceM != nil {
				r.metrics.NearestDistance.Observe(*a.DistanceM)
			}
		}

		if err := write(r, stage, r.OutputPath(AssignedFile), csvio.FromAssigned(assigned)); err != nil {
			return err
		}
		logger.Info("stage complete",
			"units", len(units),
			"input", len(rows),
			"bad_dates", pr.BadDates,
			"no_coordinates", pr.NoCoords,
			"within", rep.Within,
			"nearest", rep.Nearest,
			"overlaps", rep.Overlaps,
			"max_distance_m", rep.MaxDistanceM,
		)
		return nil
	})
	return report, err
}

// Aggregate counts assigned sightings per unit, species, and day, writing
// OUTPUT_DIR/daily_counts.csv.
func (r *Runner) Aggregate(ctx context.Context, in string) (int, error) {
	const stage = "aggregate"
	var n int
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		rows, err := read[csvio.AssignedRow](r, stage, in, csvio.AggregateColumns)
		if err != nil {
			return err
		}
		sightings, bad := csvio.AssignedForAggregation(rows)
		r.dropped(stage, "bad_key", bad)

		counts := domain.AggregateDaily(sightings)
		if err := write(r, stage, r.OutputPath(DailyCountsFile), csvio.FromCounts(counts)); err != nil {
			return err
		}
		n = len(counts)
		logger.Info("stage complete", "sightings", len(sightings), "bad_rows", bad, "cells", n)
		return nil
	})
	return n, err
}
