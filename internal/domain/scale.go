package domain

import (
	"fmt"
	"math"
)

// FeatureRange is the fitted range of one feature.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Scaler holds min-max parameters keyed by feature column name.
type Scaler map[string]FeatureRange

// FitScaler computes the observed range of every environmental variable,
// ignoring missing values. A variable with no values gets a zero range.
func FitScaler(rows []ModelRow) Scaler {
	s := make(Scaler, NumVariables)
	for _, v := range Variables() {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			x := r.Env[v]
			if math.IsNaN(x) {
				continue
			}
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		if math.IsInf(lo, 1) {
			lo, hi = 0, 0
		}
		s[v.Column()] = FeatureRange{Min: lo, Max: hi}
	}
	return s
}

// Apply rescales the environment of rows in place. A constant feature maps
// to 0 and missing values stay missing. Values outside the fitted range are
// not clipped.
func (s Scaler) Apply(rows []ModelRow) error {
	var ranges [NumVariables]FeatureRange
	for _, v := range Variables() {
		fr, ok := s[v.Column()]
		if !ok {
			return fmt.Errorf("scaler has no parameters for %s", v.Column())
		}
		ranges[v] = fr
	}

	for i := range rows {
		for v, x := range rows[i].Env {
			if math.IsNaN(x) {
				continue
			}
			rows[i].Env[v] = ranges[v].scale(x)
		}
	}
	return nil
}

func (fr FeatureRange) scale(x float64) float64 {
	span := fr.Max - fr.Min
	if span == 0 {
		return 0
	}
	return (x - fr.Min) / span
}
