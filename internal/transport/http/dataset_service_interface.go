package http

import (
	"context"
	"time"

	"schoolpulse/internal/pipeline"
	"schoolpulse/pkg/contracts/domain"
)

// DatasetServiceInterface is the contract the incident handlers need
// from the service layer. Kept narrow so handler tests can stub it.
type DatasetServiceInterface interface {
	// Compute returns the engineered dataset, quality report and
	// statistics for the given filter.
	Compute(ctx context.Context, spec domain.FilterSpec) (*pipeline.ComputeResult, error)

	// Refresh re-fetches the upstream payload and invalidates every
	// memoized result.
	Refresh(ctx context.Context) error

	// FetchedAt reports when the current payload was retrieved.
	FetchedAt() time.Time
}
