// Package fetch retrieves the raw incident payload from the upstream
// source. It is a boundary collaborator: the core pipeline only ever
// sees the returned bytes and never performs network I/O itself.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"schoolpulse/internal/config"
)

// maxPayloadBytes caps the response body read. The source CSV is a
// few megabytes; anything beyond this is a misbehaving upstream.
const maxPayloadBytes = 64 << 20

// Fetcher performs the single bounded fetch of the source dataset per
// session.
type Fetcher struct {
	client    *http.Client
	url       string
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a fetcher from source configuration.
func NewFetcher(cfg config.SourceConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		logger:    logger.With(slog.String("component", "fetcher")),
	}
}

// Fetch downloads the raw payload. The context bounds the call on top
// of the client timeout; cancellation aborts the transfer.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch source data: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read source payload: %w", err)
	}

	f.logger.InfoContext(ctx, "source payload fetched",
		slog.String("url", f.url),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	return data, nil
}
