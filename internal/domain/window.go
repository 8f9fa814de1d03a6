package domain

import (
	"fmt"
	"time"
)

// Window is an inclusive range of calendar days. A zero End means "today"
// and is resolved against the package clock.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a validated window from two calendar days.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: TruncateDay(start), End: TruncateDay(end)}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Resolve returns the window with an open End replaced by Today.
func (w Window) Resolve() Window {
	w.Start = TruncateDay(w.Start)
	if w.End.IsZero() {
		w.End = Today()
	} else {
		w.End = TruncateDay(w.End)
	}
	return w
}

// Validate reports ErrEmptyWindow when End precedes Start.
func (w Window) Validate() error {
	r := w.Resolve()
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s after %s", ErrEmptyWindow, FormatDate(r.Start), FormatDate(r.End))
	}
	return nil
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	r := w.Resolve()
	d := TruncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar days in the window, or 0 if it is empty.
func (w Window) Days() int {
	r := w.Resolve()
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates lists every day of the window in ascending order.
func (w Window) Dates() []time.Time {
	r := w.Resolve()
	n := w.Days()
	out := make([]time.Time, n)
	for i := range n {
		out[i] = r.Start.AddDate(0, 0, i)
	}
	return out
}

func (w Window) String() string {
	r := w.Resolve()
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}
