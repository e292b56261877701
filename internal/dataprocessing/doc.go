// Package dataprocessing implements the row-level stages of the
// incident pipeline: parsing raw tabular payloads into typed records,
// removing duplicates by composite identity key, scoring data quality,
// and attaching derived fields.
//
// The stages are pure with respect to shared state: each consumes its
// input and returns a new value, so independent pipeline runs can
// proceed concurrently without cross-contamination.
package dataprocessing
