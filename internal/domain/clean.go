package domain

import "strings"

// RawSighting is a sighting exactly as read from an export, before any parsing.
type RawSighting struct {
	Date     string
	Species  string
	Location string
}

// CleanReport summarizes a cleaning pass.
type CleanReport struct {
	Input        int
	BadDates     int
	OutOfWindow  int
	BadLocations int
	Output       int
}

// Dropped is the total number of rows removed.
func (r CleanReport) Dropped() int {
	return r.BadDates + r.OutOfWindow + r.BadLocations
}

// CleanSightings parses dates, filters rows to window, and normalizes
// locations. Rows with an unparseable date, a date outside the window, or a
// location that normalizes to "" are dropped and counted.
func CleanSightings(rows []RawSighting, window Window, n *LocationNormalizer) ([]Sighting, CleanReport) {
	window = window.Resolve()
	report := CleanReport{Input: len(rows)}
	out := make([]Sighting, 0, len(rows))

	for _, r := range rows {
		date, err := ParseDate(r.Date)
		if err != nil {
			report.BadDates++
			continue
		}
		if !window.Contains(date) {
			report.OutOfWindow++
			continue
		}
		loc := n.Normalize(r.Location)
		if loc == "" {
			report.BadLocations++
			continue
		}
		out = append(out, Sighting{
			Date:     date,
			Species:  strings.TrimSpace(r.Species),
			Location: loc,
		})
	}

	report.Output = len(out)
	return out, report
}
