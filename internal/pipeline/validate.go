package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// Phase is the outcome of one integrity check.
type Phase struct {
	Name   string
	Errors []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no problems.
func (p Phase) Passed() bool { return len(p.Errors) == 0 }

// Validate checks the grid, redistributed counts, and imputed model dataset
// against each other, writes a PASS/FAIL report to the runner's output, and
// returns the phases. It only returns an error when an input cannot be read.
func (r *Runner) Validate(ctx context.Context, gridPath, redistributedPath, modelPath string) ([]Phase, error) {
	const stage = "validate"
	var phases []Phase
	err := r.run(ctx, stage, func(_ context.Context, logger *slog.Logger) error {
		readable := Phase{Name: "Readable rows"}

		grid, bad, err := r.readCounts(stage, gridPath)
		if err != nil {
			return err
		}
		if bad > 0 {
			readable.errorf("%s: %d unparseable rows", gridPath, bad)
		}
		redistributed, bad, err := r.readCounts(stage, redistributedPath)
		if err != nil {
			return err
		}
		if bad > 0 {
			readable.errorf("%s: %d unparseable rows", redistributedPath, bad)
		}
		model, bad, err := r.readModel(stage, modelPath)
		if err != nil {
			return err
		}
		if bad > 0 {
			readable.errorf("%s: %d unparseable rows", modelPath, bad)
		}

		phases = []Phase{
			readable,
			{Name: "Grid completeness (" + r.opts.GridWindow.String() + ")", Errors: domain.CheckGridCompleteness(grid, r.opts.GridWindow)},
			{Name: "Non-destructive redistribution", Errors: domain.CheckNonDestructive(grid, redistributed)},
			{Name: "Fused row count", Errors: domain.CheckFusedRowCount(redistributed, model)},
			{Name: "Imputation totality", Errors: domain.CheckImputationTotality(model)},
		}

		passed := WriteReport(r.out, phases)
		logger.Info("stage complete",
			"grid_cells", len(grid),
			"redistributed_cells", len(redistributed),
			"model_rows", len(model),
			"passed", passed,
		)
		return nil
	})
	return phases, err
}

// AllPassed reports whether every phase passed.
func AllPassed(phases []Phase) bool {
	for _, p := range phases {
		if !p.Passed() {
			return false
		}
	}
	return true
}

// WriteReport prints one status line per phase followed by the detailed
// errors of failed phases. It returns AllPassed(phases).
func WriteReport(w io.Writer, phases []Phase) bool {
	fmt.Fprintln(w, "=== Dataset Integrity Validation ===")
	fmt.Fprintln(w)
	for _, p := range phases {
		status := "PASS"
		if !p.Passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.Errors))
		}
		fmt.Fprintf(w, "  %-48s %s\n", p.Name, status)
	}

	for _, p := range phases {
		if p.Passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if AllPassed(phases) {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
