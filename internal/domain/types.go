package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk date format for every stage after cleaning.
const DateLayout = "2006/01/02"

// isoDateRe matches dashed ISO dates, which are rewritten to DateLayout before parsing.
var isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// tolerated layouts, in order of preference.
var dateLayouts = []string{
	DateLayout,
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Sighting is a single raw or cleaned sighting report. Coords is nil until
// the location has been geocoded, after which it is authoritative.
type Sighting struct {
	Date     time.Time
	Species  string
	Location string
	Coords   *Coordinates
}

// AssignmentMethod records how a sighting was matched to an admin unit.
type AssignmentMethod string

const (
	AssignedWithin  AssignmentMethod = "within"
	AssignedNearest AssignmentMethod = "nearest"
)

// AdminAttributes are the PSGC attributes copied from the matched polygon.
type AdminAttributes struct {
	Code         int64 // barangay (adm4)
	Name         string
	CityCode     int64 // adm3
	ProvinceCode int64 // adm2
	RegionCode   int64 // adm1
	AreaKm2      float64
}

// AssignedSighting is a sighting with its administrative unit. DistanceM is
// only set when Method is AssignedNearest.
type AssignedSighting struct {
	Sighting
	Admin     AdminAttributes
	Method    AssignmentMethod
	DistanceM *float64
}

// DailyCount is one (admin unit, species, date) cell.
type DailyCount struct {
	AdminCode int64
	Species   string
	Date      time.Time
	Count     int
}

// SeriesKey identifies one (admin unit, species) time series.
type SeriesKey struct {
	AdminCode int64
	Species   string
}

func (c DailyCount) seriesKey() SeriesKey {
	return SeriesKey{AdminCode: c.AdminCode, Species: c.Species}
}

// ParseDate parses a calendar date, rewriting YYYY-MM-DD to YYYY/MM/DD first.
// The result is UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = isoDateRe.ReplaceAllString(s, "$1/$2/$3")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized format", s)
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDay drops the time-of-day, keeping the calendar date as UTC midnight.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAdminCode coerces a PSGC code that may have been serialized as a float.
func ParseAdminCode(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse admin code: empty")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse admin code %q: not numeric", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parse admin code %q: not an integer", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("parse admin code %q: out of range", s)
	}
	return int64(f), nil
}

// ParseOptionalFloat parses a numeric cell, returning NaN for blank or
// unparseable input.
func ParseOptionalFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FormatOptionalFloat renders NaN as the empty string.
func FormatOptionalFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
