// Package filter applies user-selected predicates (date range, states,
// severity floor, intents, presets) to an engineered incident
// sequence. Presets resolve to canonical predicates before evaluation,
// so precedence is never ambiguous.
package filter
