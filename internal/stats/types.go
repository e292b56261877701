package stats

import (
	"time"
)

// Options controls snapshot computation.
type Options struct {
	// TopK is the number of leading states reported in the
	// concentration metrics.
	TopK int

	// Cutoff bounds the complete-year series for the trend: calendar
	// years >= Cutoff's year are treated as partial. Zero means "now
	// at call time".
	Cutoff time.Time

	// IncludePartialYear folds the partial current year into the
	// year-over-year series anyway. Off by default.
	IncludePartialYear bool
}

// DefaultTopK matches the concentration table in the executive report.
const DefaultTopK = 10

// DefaultOptions returns the options used when callers pass the zero
// value.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK}
}

func (o Options) withDefaults(now func() time.Time) Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Cutoff.IsZero() {
		o.Cutoff = now()
	}
	return o
}
