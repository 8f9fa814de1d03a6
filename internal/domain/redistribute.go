package domain

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// RedistributeConfig controls zero-cell redistribution.
type RedistributeConfig struct {
	Window  int    // centered rolling-mean width in days
	Seed    uint64 // run seed; each series derives its own stream from it
	Workers int
}

// DefaultRedistributeConfig returns a 14-day window, seed 42, and 4 workers.
func DefaultRedistributeConfig() RedistributeConfig {
	return RedistributeConfig{Window: 14, Seed: 42, Workers: 4}
}

// RedistributeReport summarizes a redistribution pass.
type RedistributeReport struct {
	Series    int
	Kept      int // cells with a positive original count
	Simulated int // zero cells that received a draw
	NonZero   int // draws that came out positive
}

// RollingMean returns the centered moving average of values with the given
// window, accepting any number of available neighbors at the edges. For an
// even window the extra element falls on the trailing side.
func RollingMean(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if window < 1 {
		window = 1
	}
	back := window / 2
	fwd := window - 1 - back

	cs := floats.CumSum(make([]float64, n), values)
	for i := range n {
		lo := max(0, i-back)
		hi := min(n-1, i+fwd)
		sum := cs[hi]
		if lo > 0 {
			sum -= cs[lo-1]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// Redistribute replaces zero counts with Poisson draws whose rate is the
// rolling mean of the original series at that day. Positive counts are never
// changed. The rate is computed once per series from original counts, so
// draws never feed back into later rates. Each (admin unit, species) series
// draws from its own generator seeded by the run seed and a hash of the
// series key, which makes the result identical for any worker count.
func Redistribute(ctx context.Context, grid []DailyCount, cfg RedistributeConfig) ([]DailyCount, RedistributeReport, error) {
	if cfg.Window < 1 {
		return nil, RedistributeReport{}, fmt.Errorf("redistribute: window must be at least 1, got %d", cfg.Window)
	}

	out := slices.Clone(grid)
	SortCounts(out)
	series := SplitSeries(out)
	reports := make([]RedistributeReport, len(series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, s := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = redistributeSeries(s, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, RedistributeReport{}, fmt.Errorf("redistribute: %w", err)
	}

	report := RedistributeReport{Series: len(series)}
	for _, r := range reports {
		report.Kept += r.Kept
		report.Simulated += r.Simulated
		report.NonZero += r.NonZero
	}
	return out, report, nil
}

func redistributeSeries(cells []DailyCount, cfg RedistributeConfig) RedistributeReport {
	var report RedistributeReport
	counts := make([]float64, len(cells))
	for i, c := range cells {
		counts[i] = float64(c.Count)
	}
	rates := RollingMean(counts, cfg.Window)
	src := rand.NewPCG(cfg.Seed, SeriesSeed(cells[0].seriesKey()))

	for i := range cells {
		if cells[i].Count > 0 {
			report.Kept++
			continue
		}
		report.Simulated++
		cells[i].Count = drawPoisson(rates[i], src)
		if cells[i].Count > 0 {
			report.NonZero++
		}
	}
	return report
}

// drawPoisson samples Poisson(lambda). A non-positive or undefined rate
// yields 0 without consuming randomness.
func drawPoisson(lambda float64, src rand.Source) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	d := distuv.Poisson{Lambda: lambda, Src: src}
	return int(d.Rand())
}

// SeriesSeed derives the per-series stream selector from its key.
func SeriesSeed(k SeriesKey) uint64 {
	return xxhash.Sum64String(strconv.FormatInt(k.AdminCode, 10) + "|" + k.Species)
}
