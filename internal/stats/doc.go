// Package stats computes the aggregate statistical measures over an
// engineered incident sequence: geographic concentration (discrete
// Gini coefficient over per-state counts), year-over-year trend and
// volatility across complete calendar years, intent-by-outcome
// contingency measures, and top-K concentration with a Pareto-style
// cumulative curve.
//
// All metrics are computed against the row count of the input
// sequence, so snapshots recompute correctly over filtered subsets.
// Undefined metrics are reported as nil, never as zero.
package stats
