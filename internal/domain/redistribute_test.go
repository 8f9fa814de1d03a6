package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{"odd window", []float64{0, 0, 15, 0, 0}, 3, []float64{0, 5, 5, 5, 0}},
		{"even window trails", []float64{1, 2, 3}, 2, []float64{1, 1.5, 2.5}},
		{"window wider than series", []float64{3, 0, 0}, 14, []float64{1, 1, 1}},
		{"window one is identity", []float64{4, 0, 2}, 1, []float64{4, 0, 2}},
		{"empty", nil, 14, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.want, RollingMean(tt.values, tt.window), 1e-12)
		})
	}
}

func TestRollingMean_FourteenDayBounds(t *testing.T) {
	values := make([]float64, 30)
	values[0] = 14
	got := RollingMean(values, 14)

	// Day 0 sees days 0..6 (seven values).
	assert.InDelta(t, 2.0, got[0], 1e-12)
	// Day 7 sees days 0..13, the first full window.
	assert.InDelta(t, 1.0, got[7], 1e-12)
	// Day 8 no longer reaches day 0.
	assert.InDelta(t, 0.0, got[8], 1e-12)
}

func testGrid(t *testing.T, days int, counts map[SeriesKey]map[int]int) []DailyCount {
	t.Helper()
	start := day("2023-01-01")
	w, err := NewWindow(start, start.AddDate(0, 0, days-1))
	require.NoError(t, err)

	var sparse []DailyCount
	for k, byDay := range counts {
		// Anchor each series so it appears in the grid even if all zero.
		sparse = append(sparse, DailyCount{AdminCode: k.AdminCode, Species: k.Species, Date: start})
		for d, n := range byDay {
			sparse = append(sparse, DailyCount{AdminCode: k.AdminCode, Species: k.Species, Date: start.AddDate(0, 0, d), Count: n})
		}
	}
	grid, _, err := BuildGrid(sparse, w)
	require.NoError(t, err)
	return grid
}

func TestRedistribute_NonDestructive(t *testing.T) {
	grid := testGrid(t, 60, map[SeriesKey]map[int]int{
		{AdminCode: 1, Species: "A"}: {3: 4, 10: 2, 11: 7, 40: 1},
		{AdminCode: 1, Species: "B"}: {0: 1},
		{AdminCode: 2, Species: "A"}: {59: 3},
	})

	got, report, err := Redistribute(context.Background(), grid, DefaultRedistributeConfig())
	require.NoError(t, err)
	require.Len(t, got, len(grid))

	assert.Empty(t, CheckNonDestructive(grid, got))
	assert.Equal(t, 6, report.Kept)
	assert.Equal(t, len(grid)-6, report.Simulated)
	assert.Equal(t, 4, report.Series)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.Count, 0)
	}
}

func TestRedistribute_ZeroRateStaysZero(t *testing.T) {
	grid := testGrid(t, 30, map[SeriesKey]map[int]int{
		{AdminCode: 1, Species: "A"}: {},
	})

	got, report, err := Redistribute(context.Background(), grid, DefaultRedistributeConfig())
	require.NoError(t, err)

	for _, c := range got {
		assert.Equal(t, 0, c.Count)
	}
	assert.Equal(t, 0, report.NonZero)
}

func TestRedistribute_FarFromSightingsStaysZero(t *testing.T) {
	grid := testGrid(t, 40, map[SeriesKey]map[int]int{
		{AdminCode: 1, Species: "A"}: {0: 5},
	})

	got, _, err := Redistribute(context.Background(), grid, DefaultRedistributeConfig())
	require.NoError(t, err)

	// Days beyond the 7-day reach of day 0 have a zero rate.
	for _, c := range got[8:] {
		assert.Equal(t, 0, c.Count, "day %s", FormatDate(c.Date))
	}
}

func TestRedistribute_ReproducibleAcrossWorkers(t *testing.T) {
	counts := map[SeriesKey]map[int]int{}
	for a := int64(1); a <= 8; a++ {
		counts[SeriesKey{AdminCode: a, Species: "A"}] = map[int]int{int(a): 6, int(a) + 20: 3}
		counts[SeriesKey{AdminCode: a, Species: "B"}] = map[int]int{30: int(a)}
	}
	grid := testGrid(t, 45, counts)

	cfg := DefaultRedistributeConfig()
	cfg.Workers = 1
	sequential, _, err := Redistribute(context.Background(), grid, cfg)
	require.NoError(t, err)

	cfg.Workers = 8
	parallel, _, err := Redistribute(context.Background(), grid, cfg)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestRedistribute_DoesNotMutateInput(t *testing.T) {
	grid := testGrid(t, 20, map[SeriesKey]map[int]int{
		{AdminCode: 1, Species: "A"}: {5: 9},
	})
	before := make([]DailyCount, len(grid))
	copy(before, grid)

	_, _, err := Redistribute(context.Background(), grid, DefaultRedistributeConfig())
	require.NoError(t, err)
	assert.Equal(t, before, grid)
}

func TestRedistribute_InvalidWindow(t *testing.T) {
	_, _, err := Redistribute(context.Background(), nil, RedistributeConfig{Window: 0})
	require.Error(t, err)
}

func TestRedistribute_CancelledContext(t *testing.T) {
	grid := testGrid(t, 10, map[SeriesKey]map[int]int{
		{AdminCode: 1, Species: "A"}: {1: 1},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Redistribute(ctx, grid, DefaultRedistributeConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSeriesSeed_DistinctPerSeries(t *testing.T) {
	a := SeriesSeed(SeriesKey{AdminCode: 1, Species: "A"})
	assert.Equal(t, a, SeriesSeed(SeriesKey{AdminCode: 1, Species: "A"}))
	assert.NotEqual(t, a, SeriesSeed(SeriesKey{AdminCode: 1, Species: "B"}))
	assert.NotEqual(t, a, SeriesSeed(SeriesKey{AdminCode: 11, Species: "A"}))
}

func TestDrawPoisson_ZeroRate(t *testing.T) {
	for range 100 {
		assert.Equal(t, 0, drawPoisson(0, nil))
	}
}
