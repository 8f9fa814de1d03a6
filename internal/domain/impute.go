package domain

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/interp"
)

// ImputeConfig controls environmental gap filling.
type ImputeConfig struct {
	// MaxGapDays bounds linear interpolation: interior gaps spanning more
	// missing days are left to the fill passes. 0 means unbounded.
	MaxGapDays int
	// FillTrailing forward-fills gaps after a unit's last known value, which
	// the backward pass cannot reach.
	FillTrailing bool
	// GlobalBackfill runs a final backward fill across unit boundaries in
	// (admin code, species, date) order, so a unit with no coverage takes
	// the values of the unit after it. It is still listed in
	// ImputeReport.Uncovered.
	GlobalBackfill bool
	Workers        int
}

// DefaultImputeConfig returns unbounded interpolation, trailing fill and
// global backfill on, and 4 workers.
func DefaultImputeConfig() ImputeConfig {
	return ImputeConfig{FillTrailing: true, GlobalBackfill: true, Workers: 4}
}

// ImputeReport summarizes an imputation pass.
type ImputeReport struct {
	Units     int
	Filled    Missing
	Remaining Missing
	// Uncovered lists units whose own data could not fill every variable,
	// typically because the unit has no environmental data at all.
	Uncovered []int64
}

// Impute fills missing environmental values along time independently per
// admin unit. Per unit, the environment is collapsed to one value per day,
// then:
//
//  1. continuous climate variables are linearly interpolated across interior gaps,
//  2. surface temperature and landcover are forward filled,
//  3. every variable is backward filled,
//  4. with FillTrailing, every variable is forward filled.
//
// With GlobalBackfill, whatever is still missing is then backward filled
// across units.
//
// Present values are never changed. Rows are returned sorted by admin code,
// species, then date.
func Impute(ctx context.Context, rows []ModelRow, cfg ImputeConfig) ([]ModelRow, ImputeReport, error) {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, compareRows)
	units := splitUnits(out)

	filled := make([]Missing, len(units))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			filled[i] = imputeUnit(u, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ImputeReport{}, fmt.Errorf("impute: %w", err)
	}

	report := ImputeReport{Units: len(units)}
	for _, f := range filled {
		for v := range f {
			report.Filled[v] += f[v]
		}
	}
	for _, u := range units {
		if MissingInRows(u).Total() > 0 {
			report.Uncovered = append(report.Uncovered, u[0].AdminCode)
		}
	}
	if cfg.GlobalBackfill {
		gf := backfillRows(out)
		for v := range gf {
			report.Filled[v] += gf[v]
		}
	}

	report.Remaining = MissingInRows(out)
	return out, report, nil
}

// splitUnits groups rows sorted by admin code into per-unit slices that alias rows.
func splitUnits(rows []ModelRow) [][]ModelRow {
	if len(rows) == 0 {
		return nil
	}
	var out [][]ModelRow
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].AdminCode != rows[start].AdminCode {
			out = append(out, rows[start:i])
			start = i
		}
	}
	return out
}

func imputeUnit(rows []ModelRow, cfg ImputeConfig) Missing {
	dates, index := unitDates(rows)
	days := make([]float64, len(dates))
	for i, d := range dates {
		days[i] = d.Sub(dates[0]).Hours() / 24
	}

	series := make([][]float64, NumVariables)
	for v := range series {
		s := make([]float64, len(dates))
		for i := range s {
			s[i] = math.NaN()
		}
		series[v] = s
	}
	for _, r := range rows {
		j := index[r.Date]
		for v, x := range r.Env {
			if math.IsNaN(series[v][j]) && !math.IsNaN(x) {
				series[v][j] = x
			}
		}
	}

	for _, v := range Variables() {
		s := series[v]
		switch v.Strategy() {
		case Interpolate:
			interpolateInterior(days, s, cfg.MaxGapDays)
		case ForwardFill:
			forwardFill(s)
		}
		backwardFill(s)
		if cfg.FillTrailing {
			forwardFill(s)
		}
	}

	var filled Missing
	for i := range rows {
		j := index[rows[i].Date]
		for v := range rows[i].Env {
			if math.IsNaN(rows[i].Env[v]) && !math.IsNaN(series[v][j]) {
				rows[i].Env[v] = series[v][j]
				filled[v]++
			}
		}
	}
	return filled
}

func unitDates(rows []ModelRow) ([]time.Time, map[time.Time]int) {
	index := make(map[time.Time]int)
	var dates []time.Time
	for _, r := range rows {
		if _, ok := index[r.Date]; !ok {
			index[r.Date] = 0
			dates = append(dates, r.Date)
		}
	}
	slices.SortFunc(dates, time.Time.Compare)
	for i, d := range dates {
		index[d] = i
	}
	return dates, index
}

// interpolateInterior fills NaNs that have a known neighbor on both sides by
// linear interpolation over x. Leading and trailing gaps are left alone, as
// are gaps longer than maxGap missing days when maxGap > 0.
func interpolateInterior(x, y []float64, maxGap int) {
	var kx, ky []float64
	var known []int
	for i, v := range y {
		if !math.IsNaN(v) {
			kx = append(kx, x[i])
			ky = append(ky, v)
			known = append(known, i)
		}
	}
	if len(known) < 2 {
		return
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(kx, ky); err != nil {
		return
	}

	for k := 1; k < len(known); k++ {
		lo, hi := known[k-1], known[k]
		if hi-lo < 2 {
			continue
		}
		if maxGap > 0 && x[hi]-x[lo]-1 > float64(maxGap) {
			continue
		}
		for i := lo + 1; i < hi; i++ {
			y[i] = pl.Predict(x[i])
		}
	}
}

func forwardFill(y []float64) {
	last := math.NaN()
	for i, v := range y {
		if math.IsNaN(v) {
			y[i] = last
		} else {
			last = v
		}
	}
}

func backwardFill(y []float64) {
	next := math.NaN()
	for i := len(y) - 1; i >= 0; i-- {
		if math.IsNaN(y[i]) {
			y[i] = next
		} else {
			next = y[i]
		}
	}
}

func backfillRows(rows []ModelRow) Missing {
	var filled Missing
	for v := range NumVariables {
		next := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			x := rows[i].Env[v]
			switch {
			case !math.IsNaN(x):
				next = x
			case !math.IsNaN(next):
				rows[i].Env[v] = next
				filled[v]++
			}
		}
	}
	return filled
}
