package domain

import (
	"slices"
	"time"
)

// HarmonizeReport summarizes key harmonization of the count and environment tables.
type HarmonizeReport struct {
	CountDuplicates int
	EnvDuplicates   int
	EnvMissing      Missing
}

// HarmonizeCounts drops duplicate (admin unit, species, day) cells, keeping
// the first occurrence, and sorts the rest.
func HarmonizeCounts(cells []DailyCount) ([]DailyCount, int) {
	type key struct {
		admin   int64
		species string
		date    time.Time
	}
	seen := make(map[key]struct{}, len(cells))
	out := make([]DailyCount, 0, len(cells))
	for _, c := range cells {
		c.Date = TruncateDay(c.Date)
		k := key{c.AdminCode, c.Species, c.Date}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	slices.SortStableFunc(out, compareCounts)
	return out, len(cells) - len(out)
}

// HarmonizeEnv drops duplicate (admin unit, day) records, keeping the first
// occurrence, and sorts the rest.
func HarmonizeEnv(records []EnvRecord) ([]EnvRecord, int) {
	type key struct {
		admin int64
		date  time.Time
	}
	seen := make(map[key]struct{}, len(records))
	out := make([]EnvRecord, 0, len(records))
	for _, r := range records {
		r.Date = TruncateDay(r.Date)
		k := key{r.AdminCode, r.Date}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	slices.SortStableFunc(out, compareEnv)
	return out, len(records) - len(out)
}

// Harmonize applies HarmonizeCounts and HarmonizeEnv and reports the
// remaining environmental gaps.
func Harmonize(cells []DailyCount, records []EnvRecord) ([]DailyCount, []EnvRecord, HarmonizeReport) {
	counts, countDups := HarmonizeCounts(cells)
	env, envDups := HarmonizeEnv(records)
	return counts, env, HarmonizeReport{
		CountDuplicates: countDups,
		EnvDuplicates:   envDups,
		EnvMissing:      MissingInRecords(env),
	}
}
