// Package pipeline composes the dataprocessing stages into one
// deterministic function over a raw tabular payload: parse, then
// deduplicate, then score quality, then engineer features. The
// Computer wrapper additionally applies a filter specification and
// computes statistics, memoized under a hash of (raw snapshot, filter
// spec) so concurrent sessions cannot cross-contaminate.
package pipeline
