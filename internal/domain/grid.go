package domain

import (
	"slices"
	"time"
)

// GridReport summarizes a grid build.
type GridReport struct {
	Observed    int // sparse cells inside the window
	OutOfWindow int
	AdminUnits  int
	Species     int
	Days        int
	Cells       int
}

// BuildGrid expands sparse counts into the dense product of observed admin
// units, observed species, and every day of window. Units and species are
// collected only from cells inside the window. Absent cells get count 0 and
// duplicate sparse keys are summed. The output is sorted by admin code,
// species, then date.
func BuildGrid(sparse []DailyCount, window Window) ([]DailyCount, GridReport, error) {
	if err := window.Validate(); err != nil {
		return nil, GridReport{}, err
	}
	window = window.Resolve()

	type key struct {
		admin   int64
		species string
		date    time.Time
	}
	observed := make(map[key]int)
	admins := make(map[int64]struct{})
	species := make(map[string]struct{})
	var report GridReport

	for _, c := range sparse {
		d := TruncateDay(c.Date)
		if !window.Contains(d) {
			report.OutOfWindow++
			continue
		}
		report.Observed++
		observed[key{c.AdminCode, c.Species, d}] += c.Count
		admins[c.AdminCode] = struct{}{}
		species[c.Species] = struct{}{}
	}

	adminList := sortedKeys(admins)
	speciesList := sortedKeys(species)
	dates := window.Dates()

	report.AdminUnits = len(adminList)
	report.Species = len(speciesList)
	report.Days = len(dates)

	grid := make([]DailyCount, 0, len(adminList)*len(speciesList)*len(dates))
	for _, a := range adminList {
		for _, s := range speciesList {
			for _, d := range dates {
				grid = append(grid, DailyCount{
					AdminCode: a,
					Species:   s,
					Date:      d,
					Count:     observed[key{a, s, d}],
				})
			}
		}
	}
	report.Cells = len(grid)
	return grid, report, nil
}

func sortedKeys[K int64 | string](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// SplitSeries groups a grid sorted by (admin code, species, date) into
// contiguous per-series slices. The slices alias cells.
func SplitSeries(cells []DailyCount) [][]DailyCount {
	if len(cells) == 0 {
		return nil
	}
	var out [][]DailyCount
	start := 0
	for i := 1; i <= len(cells); i++ {
		if i == len(cells) || cells[i].seriesKey() != cells[start].seriesKey() {
			out = append(out, cells[start:i])
			start = i
		}
	}
	return out
}
