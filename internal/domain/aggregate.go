package domain

import (
	"cmp"
	"slices"
	"time"
)

// AggregateDaily counts sightings per (admin unit, species, day). The result
// is sorted by admin code, species, then date.
func AggregateDaily(rows []AssignedSighting) []DailyCount {
	type key struct {
		admin   int64
		species string
		date    time.Time
	}
	counts := make(map[key]int)
	for _, r := range rows {
		counts[key{r.Admin.Code, r.Species, TruncateDay(r.Date)}]++
	}

	out := make([]DailyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, DailyCount{AdminCode: k.admin, Species: k.species, Date: k.date, Count: n})
	}
	SortCounts(out)
	return out
}

// SortCounts orders cells by admin code, species, then date.
func SortCounts(cells []DailyCount) {
	slices.SortFunc(cells, compareCounts)
}

func compareCounts(a, b DailyCount) int {
	if c := cmp.Compare(a.AdminCode, b.AdminCode); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Species, b.Species); c != 0 {
		return c
	}
	return a.Date.Compare(b.Date)
}

// UniqueAdminCodes returns the sorted distinct admin codes of cells.
func UniqueAdminCodes(cells []DailyCount) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, c := range cells {
		if _, ok := seen[c.AdminCode]; ok {
			continue
		}
		seen[c.AdminCode] = struct{}{}
		out = append(out, c.AdminCode)
	}
	slices.Sort(out)
	return out
}
