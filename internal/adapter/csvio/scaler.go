package csvio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// SaveScaler writes scaler parameters as {"feature": {"min": x, "max": y}}.
func SaveScaler(path string, s domain.Scaler) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write scaler %s: %w", path, err)
	}
	return nil
}

// LoadScaler reads parameters written by SaveScaler.
func LoadScaler(path string) (domain.Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w", path, err)
	}
	var s domain.Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	return s, nil
}
