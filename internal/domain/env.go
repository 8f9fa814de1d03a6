package domain

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// Variable is one environmental covariate.
type Variable int

const (
	AirTemperature Variable = iota
	SoilTemperature
	SoilMoisture
	SurfaceTemperature // MODIS LST, prone to cloud gaps
	Landcover
	NumVariables int = iota
)

var variableColumns = [NumVariables]string{
	"air_temperature",
	"soil_temperature",
	"soil_moisture",
	"LST_C",
	"landcover",
}

// Column is the variable's column name in every tabular file.
func (v Variable) Column() string { return variableColumns[v] }

func (v Variable) String() string { return v.Column() }

// Variables lists every covariate in column order.
func Variables() []Variable {
	out := make([]Variable, NumVariables)
	for i := range out {
		out[i] = Variable(i)
	}
	return out
}

// VariableColumns lists every covariate column name in order.
func VariableColumns() []string {
	return slices.Clone(variableColumns[:])
}

// Strategy is how a variable's along-time gaps are filled.
type Strategy int

const (
	Interpolate Strategy = iota
	ForwardFill
)

// Strategy returns linear interpolation for the continuous climate variables
// and forward fill for surface temperature and landcover.
func (v Variable) Strategy() Strategy {
	switch v {
	case SurfaceTemperature, Landcover:
		return ForwardFill
	default:
		return Interpolate
	}
}

// EnvValues holds one value per Variable. NaN marks a missing value.
type EnvValues [NumVariables]float64

// MissingEnv returns an EnvValues with every variable missing.
func MissingEnv() EnvValues {
	var v EnvValues
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// EnvRecord is the environment of one admin unit on one day.
type EnvRecord struct {
	AdminCode int64
	Date      time.Time
	Values    EnvValues
}

// ModelRow is a count cell with its environment attached.
type ModelRow struct {
	DailyCount
	Env EnvValues
}

// Missing holds per-variable null counts.
type Missing [NumVariables]int

// Total sums the counts over every variable.
func (m Missing) Total() int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// CountMissing tallies NaN values per variable across values.
func CountMissing(values []EnvValues) Missing {
	var m Missing
	for _, v := range values {
		for i, x := range v {
			if math.IsNaN(x) {
				m[i]++
			}
		}
	}
	return m
}

// MissingInRows is CountMissing over the environment of rows.
func MissingInRows(rows []ModelRow) Missing {
	values := make([]EnvValues, len(rows))
	for i, r := range rows {
		values[i] = r.Env
	}
	return CountMissing(values)
}

// MissingInRecords is CountMissing over the values of records.
func MissingInRecords(records []EnvRecord) Missing {
	values := make([]EnvValues, len(records))
	for i, r := range records {
		values[i] = r.Values
	}
	return CountMissing(values)
}

func compareEnv(a, b EnvRecord) int {
	if c := cmp.Compare(a.AdminCode, b.AdminCode); c != 0 {
		return c
	}
	return a.Date.Compare(b.Date)
}

func compareRows(a, b ModelRow) int {
	return compareCounts(a.DailyCount, b.DailyCount)
}
