package domain

import (
	"slices"
	"time"
)

// FuseReport summarizes a fusion pass.
type FuseReport struct {
	Rows      int
	Unmatched int // count cells with no environment record
	Missing   Missing
}

// Fuse left-joins env onto cells by (admin unit, day). The count grid decides
// which rows exist, so the output always has len(cells) rows; cells without a
// matching record get all-missing values. When env holds duplicate keys the
// first record wins. The output is sorted by admin code, species, then date.
func Fuse(cells []DailyCount, env []EnvRecord) ([]ModelRow, FuseReport) {
	type key struct {
		admin int64
		date  time.Time
	}
	lookup := make(map[key]EnvValues, len(env))
	for _, r := range env {
		k := key{r.AdminCode, TruncateDay(r.Date)}
		if _, ok := lookup[k]; !ok {
			lookup[k] = r.Values
		}
	}

	report := FuseReport{Rows: len(cells)}
	rows := make([]ModelRow, len(cells))
	for i, c := range cells {
		c.Date = TruncateDay(c.Date)
		values, ok := lookup[key{c.AdminCode, c.Date}]
		if !ok {
			values = MissingEnv()
			report.Unmatched++
		}
		rows[i] = ModelRow{DailyCount: c, Env: values}
	}
	slices.SortStableFunc(rows, compareRows)
	report.Missing = MissingInRows(rows)
	return rows, report
}
