package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyWindow is returned when a date window ends before it starts.
var ErrEmptyWindow = errors.New("date window is empty")

// SchemaError reports required columns missing from a stage input. It is
// always returned before any row is processed.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// IntegrityError reports a data-integrity defect, such as a point that no
// polygon could claim even after nearest-neighbor fallback.
type IntegrityError struct {
	Stage  string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: data integrity: %s", e.Stage, e.Detail)
}

// RequireColumns returns a SchemaError naming every required column absent
// from header, or nil.
func RequireColumns(source string, header, required []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := present[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: source, Missing: missing}
	}
	return nil
}
