package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaler_FitApply(t *testing.T) {
	rows := []ModelRow{
		{Env: env(20, 10, 0.1, nan, 3)},
		{Env: env(30, 10, 0.3, 40, 3)},
		{Env: env(25, 10, 0.2, 30, 3)},
	}

	s := FitScaler(rows)
	assert.Equal(t, FeatureRange{Min: 20, Max: 30}, s["air_temperature"])
	assert.Equal(t, FeatureRange{Min: 30, Max: 40}, s["LST_C"])

	require.NoError(t, s.Apply(rows))

	assert.InDeltaSlice(t, []float64{0, 1, 0.5}, column(rows, AirTemperature), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 1, 0.5}, column(rows, SoilMoisture), 1e-9)
	// Constant feature maps to 0.
	assert.Equal(t, []float64{0, 0, 0}, column(rows, SoilTemperature))
	assert.Equal(t, []float64{0, 0, 0}, column(rows, Landcover))
	// Missing stays missing.
	assert.True(t, math.IsNaN(rows[0].Env[SurfaceTemperature]))
}

func TestScaler_ApplySavedParameters(t *testing.T) {
	s := Scaler{
		"air_temperature":  {Min: 0, Max: 10},
		"soil_temperature": {Min: 0, Max: 10},
		"soil_moisture":    {Min: 0, Max: 1},
		"LST_C":            {Min: 0, Max: 10},
		"landcover":        {Min: 0, Max: 10},
	}
	rows := []ModelRow{{Env: env(15, 5, 0.5, 0, 10)}}

	require.NoError(t, s.Apply(rows))
	// Out-of-range inference values are not clipped.
	assert.InDelta(t, 1.5, rows[0].Env[AirTemperature], 1e-9)
	assert.InDelta(t, 0.5, rows[0].Env[SoilTemperature], 1e-9)
}

func TestScaler_MissingParameters(t *testing.T) {
	s := Scaler{"air_temperature": {Min: 0, Max: 1}}
	err := s.Apply([]ModelRow{{Env: env(1, 1, 1, 1, 1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soil_temperature")
}

func TestFitScaler_EmptyColumn(t *testing.T) {
	s := FitScaler([]ModelRow{{Env: MissingEnv()}})
	assert.Len(t, s, NumVariables)
	assert.Equal(t, FeatureRange{}, s["landcover"])
}
