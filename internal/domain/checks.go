package domain

import (
	"fmt"
	"math"
	"time"
)

// Integrity checks return one message per problem found; an empty result
// means the check passed. Messages beyond maxIssues are summarized.
const maxIssues = 20

type issues struct {
	list  []string
	extra int
}

func (is *issues) addf(format string, args ...any) {
	if len(is.list) >= maxIssues {
		is.extra++
		return
	}
	is.list = append(is.list, fmt.Sprintf(format, args...))
}

func (is *issues) result() []string {
	if is.extra > 0 {
		is.list = append(is.list, fmt.Sprintf("... and %d more", is.extra))
	}
	return is.list
}

// CheckGridCompleteness verifies that every observed (admin unit, species)
// pair has exactly one cell per day of window and nothing outside it.
func CheckGridCompleteness(grid []DailyCount, window Window) []string {
	var is issues
	window = window.Resolve()
	type cellKey struct {
		series SeriesKey
		date   time.Time
	}
	seen := make(map[cellKey]struct{}, len(grid))
	perSeries := make(map[SeriesKey]int)
	admins := make(map[int64]struct{})
	species := make(map[string]struct{})

	for _, c := range grid {
		if c.Count < 0 {
			is.addf("negative count %d at %d/%s/%s", c.Count, c.AdminCode, c.Species, FormatDate(c.Date))
		}
		if !window.Contains(c.Date) {
			is.addf("cell %d/%s/%s outside window %s", c.AdminCode, c.Species, FormatDate(c.Date), window)
			continue
		}
		k := cellKey{c.seriesKey(), TruncateDay(c.Date)}
		if _, dup := seen[k]; dup {
			is.addf("duplicate cell %d/%s/%s", c.AdminCode, c.Species, FormatDate(c.Date))
			continue
		}
		seen[k] = struct{}{}
		perSeries[k.series]++
		admins[c.AdminCode] = struct{}{}
		species[c.Species] = struct{}{}
	}

	days := window.Days()
	for a := range admins {
		for s := range species {
			if n := perSeries[SeriesKey{a, s}]; n != days {
				is.addf("series %d/%s has %d of %d days", a, s, n, days)
			}
		}
	}
	if want := len(admins) * len(species) * days; len(seen) != want {
		is.addf("grid has %d distinct cells, want %d (%d units x %d species x %d days)",
			len(seen), want, len(admins), len(species), days)
	}
	return is.result()
}

// CheckNonDestructive verifies that redistribution kept every positive
// count and every cell of the original grid.
func CheckNonDestructive(original, redistributed []DailyCount) []string {
	var is issues
	type cellKey struct {
		series SeriesKey
		date   time.Time
	}
	after := make(map[cellKey]int, len(redistributed))
	for _, c := range redistributed {
		after[cellKey{c.seriesKey(), TruncateDay(c.Date)}] = c.Count
	}
	if len(original) != len(redistributed) {
		is.addf("row count changed from %d to %d", len(original), len(redistributed))
	}
	for _, c := range original {
		got, ok := after[cellKey{c.seriesKey(), TruncateDay(c.Date)}]
		switch {
		case !ok:
			is.addf("cell %d/%s/%s missing after redistribution", c.AdminCode, c.Species, FormatDate(c.Date))
		case got < 0:
			is.addf("cell %d/%s/%s redistributed to negative count %d", c.AdminCode, c.Species, FormatDate(c.Date), got)
		case c.Count > 0 && got != c.Count:
			is.addf("cell %d/%s/%s changed from %d to %d", c.AdminCode, c.Species, FormatDate(c.Date), c.Count, got)
		}
	}
	return is.result()
}

// CheckFusedRowCount verifies the fused dataset has one row per count cell.
func CheckFusedRowCount(counts []DailyCount, rows []ModelRow) []string {
	if len(counts) != len(rows) {
		return []string{fmt.Sprintf("fused dataset has %d rows, counts have %d", len(rows), len(counts))}
	}
	return nil
}

// CheckImputationTotality verifies no environmental value is missing.
func CheckImputationTotality(rows []ModelRow) []string {
	var is issues
	for _, r := range rows {
		for _, v := range Variables() {
			if math.IsNaN(r.Env[v]) {
				is.addf("%s missing at %d/%s/%s", v.Column(), r.AdminCode, r.Species, FormatDate(r.Date))
			}
		}
	}
	return is.result()
}
