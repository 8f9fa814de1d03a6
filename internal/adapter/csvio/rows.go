package csvio

import (
	"math"
	"strconv"
	"strings"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// Required columns at each stage entry.
var (
	CleanColumns     = []string{"date", "species", "location"}
	GeocodeColumns   = []string{"location"}
	PointColumns     = []string{"date", "species", "lat", "long"}
	AggregateColumns = []string{"date", "species", "barangay_psgc"}
	CountColumns     = []string{"barangay_psgc", "species", "date", "count"}
	EnvColumns       = append([]string{"adm4_psgc", "date"}, domain.VariableColumns()...)
	ModelColumns     = append(append([]string{}, CountColumns...), domain.VariableColumns()...)
)

// SightingRow is a raw or cleaned sighting.
type SightingRow struct {
	Date     string `csv:"date"`
	Species  string `csv:"species"`
	Location string `csv:"location"`
}

// GeocodedRow is a sighting with its resolved coordinates. Lat and Long are
// empty when the location could not be resolved.
type GeocodedRow struct {
	Date     string `csv:"date"`
	Species  string `csv:"species"`
	Location string `csv:"location"`
	Lat      string `csv:"lat"`
	Long     string `csv:"long"`
}

// PointRow is a merged sighting point.
type PointRow struct {
	Date    string `csv:"date"`
	Species string `csv:"species"`
	Lat     string `csv:"lat"`
	Long    string `csv:"long"`
}

// AssignedRow is a point with its administrative unit.
type AssignedRow struct {
	Date             string `csv:"date"`
	Species          string `csv:"species"`
	Lat              string `csv:"lat"`
	Long             string `csv:"long"`
	BarangayPSGC     string `csv:"barangay_psgc"`
	BarangayName     string `csv:"barangay_name"`
	CityPSGC         string `csv:"adm3_psgc"`
	ProvincePSGC     string `csv:"adm2_psgc"`
	RegionPSGC       string `csv:"adm1_psgc"`
	AreaKm2          string `csv:"area_km2"`
	AssignmentMethod string `csv:"assignment_method"`
	DistanceM        string `csv:"distance_m"`
}

// CountRow is one daily count cell.
type CountRow struct {
	BarangayPSGC string `csv:"barangay_psgc"`
	Species      string `csv:"species"`
	Date         string `csv:"date"`
	Count        string `csv:"count"`
}

// EnvRow is one day of environmental covariates for a unit.
type EnvRow struct {
	AdmPSGC         string `csv:"adm4_psgc"`
	Date            string `csv:"date"`
	AirTemperature  string `csv:"air_temperature"`
	SoilTemperature string `csv:"soil_temperature"`
	SoilMoisture    string `csv:"soil_moisture"`
	LSTC            string `csv:"LST_C"`
	Landcover       string `csv:"landcover"`
}

// ModelRow is a count cell with its environment.
type ModelRow struct {
	BarangayPSGC    string `csv:"barangay_psgc"`
	Species         string `csv:"species"`
	Date            string `csv:"date"`
	Count           string `csv:"count"`
	AirTemperature  string `csv:"air_temperature"`
	SoilTemperature string `csv:"soil_temperature"`
	SoilMoisture    string `csv:"soil_moisture"`
	LSTC            string `csv:"LST_C"`
	Landcover       string `csv:"landcover"`
}

// --- sightings ---

// ToRawSightings passes rows through untouched for cleaning.
func ToRawSightings(rows []SightingRow) []domain.RawSighting {
	out := make([]domain.RawSighting, len(rows))
	for i, r := range rows {
		out[i] = domain.RawSighting{Date: r.Date, Species: r.Species, Location: r.Location}
	}
	return out
}

// FromSightings renders cleaned sightings.
func FromSightings(rows []domain.Sighting) []SightingRow {
	out := make([]SightingRow, len(rows))
	for i, r := range rows {
		out[i] = SightingRow{Date: domain.FormatDate(r.Date), Species: r.Species, Location: r.Location}
	}
	return out
}

// ToGeocoded pairs each input row with the coordinates resolved for it.
// located must be index-aligned with rows; other columns pass through as read.
func ToGeocoded(rows []SightingRow, located []domain.Sighting) []GeocodedRow {
	out := make([]GeocodedRow, len(rows))
	for i, r := range rows {
		out[i] = GeocodedRow{Date: r.Date, Species: r.Species, Location: r.Location}
		if c := located[i].Coords; c != nil {
			out[i].Lat = formatFloat(c.Lat)
			out[i].Long = formatFloat(c.Lon)
		}
	}
	return out
}

// --- points ---

// PointReport counts rows dropped while converting points.
type PointReport struct {
	BadDates  int
	NoCoords  int
	Converted int
}

// ToPoints converts point rows. Rows with an unparseable date or without
// usable coordinates are dropped and counted.
func ToPoints(rows []PointRow) ([]domain.Sighting, PointReport) {
	var report PointReport
	out := make([]domain.Sighting, 0, len(rows))
	for _, r := range rows {
		d, err := domain.ParseDate(r.Date)
		if err != nil {
			report.BadDates++
			continue
		}
		c, ok := parseCoords(r.Lat, r.Long)
		if !ok {
			report.NoCoords++
			continue
		}
		out = append(out, domain.Sighting{Date: d, Species: r.Species, Coords: c})
	}
	report.Converted = len(out)
	return out, report
}

func parseCoords(lat, lon string) (*domain.Coordinates, bool) {
	la := domain.ParseOptionalFloat(lat)
	lo := domain.ParseOptionalFloat(lon)
	if math.IsNaN(la) || math.IsNaN(lo) || math.Abs(la) > 90 || math.Abs(lo) > 180 {
		return nil, false
	}
	return &domain.Coordinates{Lat: la, Lon: lo}, true
}

// --- assigned ---

// FromAssigned renders assigned sightings.
func FromAssigned(rows []domain.AssignedSighting) []AssignedRow {
	out := make([]AssignedRow, len(rows))
	for i, r := range rows {
		row := AssignedRow{
			Date:             domain.FormatDate(r.Date),
			Species:          r.Species,
			BarangayPSGC:     formatCode(r.Admin.Code),
			BarangayName:     r.Admin.Name,
			CityPSGC:         formatCode(r.Admin.CityCode),
			ProvincePSGC:     formatCode(r.Admin.ProvinceCode),
			RegionPSGC:       formatCode(r.Admin.RegionCode),
			AreaKm2:          formatFloat(r.Admin.AreaKm2),
			AssignmentMethod: string(r.Method),
		}
		if r.Coords != nil {
			row.Lat = formatFloat(r.Coords.Lat)
			row.Long = formatFloat(r.Coords.Lon)
		}
		if r.DistanceM != nil {
			row.DistanceM = formatFloat(*r.DistanceM)
		}
		out[i] = row
	}
	return out
}

// AssignedForAggregation converts the columns aggregation needs. Rows with
// an unparseable date or admin code are dropped and counted.
func AssignedForAggregation(rows []AssignedRow) ([]domain.AssignedSighting, int) {
	out := make([]domain.AssignedSighting, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		d, err := domain.ParseDate(r.Date)
		if err != nil {
			dropped++
			continue
		}
		code, err := domain.ParseAdminCode(r.BarangayPSGC)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, domain.AssignedSighting{
			Sighting: domain.Sighting{Date: d, Species: r.Species},
			Admin:    domain.AdminAttributes{Code: code, Name: r.BarangayName},
		})
	}
	return out, dropped
}

// --- counts ---

// ToCounts converts count rows. Rows with an unparseable key or a negative
// or non-integral count are dropped and counted.
func ToCounts(rows []CountRow) ([]domain.DailyCount, int) {
	out := make([]domain.DailyCount, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		code, err := domain.ParseAdminCode(r.BarangayPSGC)
		if err != nil {
			dropped++
			continue
		}
		d, err := domain.ParseDate(r.Date)
		if err != nil {
			dropped++
			continue
		}
		n, ok := parseCount(r.Count)
		if !ok {
			dropped++
			continue
		}
		out = append(out, domain.DailyCount{AdminCode: code, Species: r.Species, Date: d, Count: n})
	}
	return out, dropped
}

// FromCounts renders count cells.
func FromCounts(cells []domain.DailyCount) []CountRow {
	out := make([]CountRow, len(cells))
	for i, c := range cells {
		out[i] = CountRow{
			BarangayPSGC: formatCode(c.AdminCode),
			Species:      c.Species,
			Date:         domain.FormatDate(c.Date),
			Count:        strconv.Itoa(c.Count),
		}
	}
	return out
}

func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// --- environment ---

// ToEnv converts environment rows. Rows with an unparseable key are dropped
// and counted; unparseable values become missing.
func ToEnv(rows []EnvRow) ([]domain.EnvRecord, int) {
	out := make([]domain.EnvRecord, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		code, err := domain.ParseAdminCode(r.AdmPSGC)
		if err != nil {
			dropped++
			continue
		}
		d, err := domain.ParseDate(r.Date)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, domain.EnvRecord{
			AdminCode: code,
			Date:      d,
			Values: parseEnv(r.AirTemperature, r.SoilTemperature, r.SoilMoisture, r.LSTC, r.Landcover),
		})
	}
	return out, dropped
}

// FromEnv renders environment records.
func FromEnv(records []domain.EnvRecord) []EnvRow {
	out := make([]EnvRow, len(records))
	for i, r := range records {
		v := formatEnv(r.Values)
		out[i] = EnvRow{
			AdmPSGC:         formatCode(r.AdminCode),
			Date:            domain.FormatDate(r.Date),
			AirTemperature:  v[domain.AirTemperature],
			SoilTemperature: v[domain.SoilTemperature],
			SoilMoisture:    v[domain.SoilMoisture],
			LSTC:            v[domain.SurfaceTemperature],
			Landcover:       v[domain.Landcover],
		}
	}
	return out
}

// --- model dataset ---

// ToModelRows converts model dataset rows, dropping rows with an unparseable
// key or count.
func ToModelRows(rows []ModelRow) ([]domain.ModelRow, int) {
	out := make([]domain.ModelRow, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		cells, bad := ToCounts([]CountRow{{BarangayPSGC: r.BarangayPSGC, Species: r.Species, Date: r.Date, Count: r.Count}})
		if bad > 0 {
			dropped++
			continue
		}
		out = append(out, domain.ModelRow{
			DailyCount: cells[0],
			Env:        parseEnv(r.AirTemperature, r.SoilTemperature, r.SoilMoisture, r.LSTC, r.Landcover),
		})
	}
	return out, dropped
}

// FromModelRows renders model dataset rows.
func FromModelRows(rows []domain.ModelRow) []ModelRow {
	out := make([]ModelRow, len(rows))
	for i, r := range rows {
		v := formatEnv(r.Env)
		out[i] = ModelRow{
			BarangayPSGC:    formatCode(r.AdminCode),
			Species:         r.Species,
			Date:            domain.FormatDate(r.Date),
			Count:           strconv.Itoa(r.Count),
			AirTemperature:  v[domain.AirTemperature],
			SoilTemperature: v[domain.SoilTemperature],
			SoilMoisture:    v[domain.SoilMoisture],
			LSTC:            v[domain.SurfaceTemperature],
			Landcover:       v[domain.Landcover],
		}
	}
	return out
}

func parseEnv(values ...string) domain.EnvValues {
	var v domain.EnvValues
	for i := range v {
		v[i] = domain.ParseOptionalFloat(values[i])
	}
	return v
}

func formatEnv(v domain.EnvValues) [domain.NumVariables]string {
	var out [domain.NumVariables]string
	for i, x := range v {
		out[i] = domain.FormatOptionalFloat(x)
	}
	return out
}

func formatCode(c int64) string { return strconv.FormatInt(c, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
