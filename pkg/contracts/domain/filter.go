package domain

import (
	"time"
)

// FilterPreset is a named bundle of filter predicates applied as a
// unit. A non-empty preset overrides the manual fields it governs.
type FilterPreset string

const (
	PresetNone               FilterPreset = ""
	PresetLastYearComplete   FilterPreset = "last_year_complete"
	PresetFatalOnly          FilterPreset = "fatal_only"
	PresetMassCasualtiesOnly FilterPreset = "mass_casualties_only"
)

// Valid reports whether p is a known preset.
func (p FilterPreset) Valid() bool {
	switch p {
	case PresetNone, PresetLastYearComplete, PresetFatalOnly, PresetMassCasualtiesOnly:
		return true
	}
	return false
}

// FilterSpec is the serializable filter configuration applied to an
// engineered dataset. Zero values mean "no constraint": an empty state
// set matches all states, a nil date bound is open-ended, an empty
// severity floor imposes none. The struct round-trips through JSON so
// a UI layer can carry it in query strings or session state.
type FilterSpec struct {
	DateFrom    *time.Time    `json:"date_from,omitempty"`
	DateTo      *time.Time    `json:"date_to,omitempty"`
	States      []string      `json:"states,omitempty" validate:"dive,len=2"`
	SeverityMin SeverityClass `json:"severity_min,omitempty"`
	Intents     []string      `json:"intents,omitempty"`
	Preset      FilterPreset  `json:"preset,omitempty"`
	FatalOnly   bool          `json:"fatal_only,omitempty"`
}

// IsZero reports whether the spec imposes no constraint at all.
func (f FilterSpec) IsZero() bool {
	return f.DateFrom == nil && f.DateTo == nil && len(f.States) == 0 &&
		f.SeverityMin == "" && len(f.Intents) == 0 &&
		f.Preset == PresetNone && !f.FatalOnly
}
