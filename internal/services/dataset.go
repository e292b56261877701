// Package services holds the application services that sit between
// the HTTP transport and the pipeline.
package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/internal/pipeline"
	"schoolpulse/pkg/contracts/domain"
)

// PayloadFetcher retrieves the raw incident payload from the upstream
// source.
type PayloadFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// xlsxMagic is the ZIP local-file signature; XLSX payloads start with
// it, CSV payloads never do.
var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// DatasetService owns the raw payload lifecycle: fetch once, keep it
// until Refresh, and answer every query through the memoized computer.
type DatasetService struct {
	fetcher  PayloadFetcher
	computer *pipeline.Computer
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	raw       []byte
	format    pipeline.PayloadFormat
	fetchedAt time.Time
}

// NewDatasetService creates a dataset service. The payload is fetched
// lazily on first use.
func NewDatasetService(fetcher PayloadFetcher, computer *pipeline.Computer, logger *slog.Logger, now func() time.Time) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &DatasetService{
		fetcher:  fetcher,
		computer: computer,
		logger:   logger.With(slog.String("component", "dataset_service")),
		now:      now,
	}
}

// Compute returns the engineered dataset, quality report and
// statistics for the given filter.
func (s *DatasetService) Compute(ctx context.Context, spec domain.FilterSpec) (*pipeline.ComputeResult, error) {
	raw, format, err := s.payload(ctx)
	if err != nil {
		return nil, err
	}
	return s.computer.Compute(ctx, raw, format, spec)
}

// Refresh drops the cached payload and memoized results so the next
// query re-fetches from the source.
func (s *DatasetService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	s.computer.Invalidate()

	_, _, err := s.payload(ctx)
	return err
}

// FetchedAt reports when the current payload was retrieved; zero when
// nothing has been fetched yet.
func (s *DatasetService) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

func (s *DatasetService) payload(ctx context.Context) ([]byte, pipeline.PayloadFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw != nil {
		return s.raw, s.format, nil
	}

	raw, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, "", apierrors.ErrEmptyPayload
	}

	format := pipeline.FormatCSV
	if bytes.HasPrefix(raw, xlsxMagic) {
		format = pipeline.FormatXLSX
	}

	s.raw = raw
	s.format = format
	s.fetchedAt = s.now()
	s.logger.InfoContext(ctx, "payload fetched",
		slog.Int("bytes", len(raw)),
		slog.String("format", string(format)))

	return s.raw, s.format, nil
}
