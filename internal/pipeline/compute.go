package pipeline

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"schoolpulse/internal/filter"
	"schoolpulse/internal/stats"
	"schoolpulse/pkg/contracts/domain"
)

// ComputeResult bundles everything one (snapshot, filter) pair yields.
type ComputeResult struct {
	Dataset    []domain.Incident         `json:"dataset"`
	Quality    domain.QualityReport      `json:"quality"`
	Statistics domain.StatisticsSnapshot `json:"statistics"`
}

// Computer is the explicit replacement for reactive UI caching:
// compute(rawSnapshot, filterSpec) -> (dataset, quality, stats) as a
// pure function, memoized under a key derived from the raw bytes and
// the full resolved filter spec. Differing filters can never be
// served each other's results, and concurrent identical requests
// collapse into one computation.
type Computer struct {
	pipeline *Pipeline
	filters  *filter.Engine
	stats    *stats.Calculator
	opts     stats.Options
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	cache    map[string]*ComputeResult
	order    []string
	maxEntry int
}

// NewComputer creates a memoizing computer. cacheSize bounds the
// number of retained results; zero or negative disables the bound.
func NewComputer(p *Pipeline, logger *slog.Logger, opts stats.Options, cacheSize int) *Computer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Computer{
		pipeline: p,
		filters:  filter.NewEngine(logger, p.now),
		stats:    stats.NewCalculator(logger, p.now),
		opts:     opts,
		logger:   logger.With(slog.String("component", "computer")),
		cache:    make(map[string]*ComputeResult),
		maxEntry: cacheSize,
	}
}

// Compute runs the full pipeline over raw and applies spec, memoized.
// Statistics are recomputed over the filtered subset, so their
// percentages reflect the rows the caller actually sees.
func (c *Computer) Compute(ctx context.Context, raw []byte, format PayloadFormat, spec domain.FilterSpec) (*ComputeResult, error) {
	resolved := c.filters.Resolve(spec)
	key, err := cacheKey(raw, format, resolved)
	if err != nil {
		return nil, err
	}

	if cached := c.lookup(key); cached != nil {
		c.logger.DebugContext(ctx, "compute cache hit", slog.String("key", key[:12]))
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := c.pipeline.Run(ctx, raw, format)
		if err != nil {
			return nil, err
		}

		filtered := c.filters.Apply(ctx, result.Incidents, resolved)
		snapshot := c.stats.Snapshot(ctx, filtered, c.opts)

		cr := &ComputeResult{
			Dataset:    filtered,
			Quality:    result.Quality,
			Statistics: snapshot,
		}
		c.store(key, cr)
		return cr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ComputeResult), nil
}

// cacheKey hashes the raw snapshot together with the canonical JSON of
// the resolved filter spec. The spec must be part of the key: caching
// on the snapshot alone would serve stale results across filters.
func cacheKey(raw []byte, format PayloadFormat, spec domain.FilterSpec) (string, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal filter spec: %w", err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	h.Write(raw)
	h.Write([]byte(format))
	h.Write(specJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Computer) lookup(key string) *ComputeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache[key]
}

func (c *Computer) store(key string, result *ComputeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; exists {
		return
	}
	c.cache[key] = result
	c.order = append(c.order, key)

	// Evict oldest entries past the bound.
	if c.maxEntry > 0 {
		for len(c.order) > c.maxEntry {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.cache, oldest)
		}
	}
}

// Invalidate drops all memoized results, for use when a new raw
// snapshot supersedes the session's data.
func (c *Computer) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*ComputeResult)
	c.order = nil
}
