package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"schoolpulse/internal/dataprocessing"
	"schoolpulse/internal/infrastructure"
	"schoolpulse/pkg/contracts/domain"
)

// PayloadFormat selects the ingestion decoder.
type PayloadFormat string

const (
	FormatCSV  PayloadFormat = "csv"
	FormatXLSX PayloadFormat = "xlsx"
)

// Result is the artifact of one pipeline run: the engineered dataset
// and the quality report describing what was imperfect. It is handed
// to the filter engine and downstream consumers for the duration of
// one session and never mutated afterwards.
type Result struct {
	Incidents []domain.Incident    `json:"incidents"`
	Quality   domain.QualityReport `json:"quality"`
}

// Pipeline composes parsing, deduplication, quality assessment and
// feature engineering into one deterministic computation over an
// immutable input snapshot. A Pipeline carries no per-run state, so a
// single instance serves concurrent runs over independent snapshots.
type Pipeline struct {
	parser   *dataprocessing.Parser
	dedup    *dataprocessing.Deduplicator
	quality  *dataprocessing.QualityAssessor
	features *dataprocessing.FeatureEngine
	logger   *slog.Logger
	metrics  *infrastructure.Metrics
	now      func() time.Time
}

// New creates a pipeline. metrics may be nil (no instrumentation);
// now may be nil (time.Now), it feeds freshness computation.
func New(logger *slog.Logger, metrics *infrastructure.Metrics, now func() time.Time) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		parser:   dataprocessing.NewParser(logger),
		dedup:    dataprocessing.NewDeduplicator(logger),
		quality:  dataprocessing.NewQualityAssessor(logger, now),
		features: dataprocessing.NewFeatureEngine(logger),
		logger:   logger.With(slog.String("component", "pipeline")),
		metrics:  metrics,
		now:      now,
	}
}

// Run executes parse -> dedup -> quality -> features over a raw
// payload. Row-level defects never abort the run; only contract
// violations (empty payload, unrecognized schema) return an error.
func (p *Pipeline) Run(ctx context.Context, raw []byte, format PayloadFormat) (*Result, error) {
	start := p.now()

	var (
		parsed *dataprocessing.ParseResult
		err    error
	)
	switch format {
	case FormatXLSX:
		parsed, err = p.parser.ParseXLSX(ctx, bytes.NewReader(raw))
	default:
		parsed, err = p.parser.ParseCSV(ctx, bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	deduped, duplicates := p.dedup.Deduplicate(ctx, parsed.Incidents)
	report := p.quality.Assess(ctx, deduped, parsed.RejectedRows, duplicates, parsed.Defects)
	engineered := p.features.Engineer(ctx, deduped)

	elapsed := p.now().Sub(start)
	p.record(ctx, parsed, duplicates, elapsed)

	p.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("incidents", len(engineered)),
		slog.Int("rejected_rows", parsed.RejectedRows),
		slog.Int("duplicates_removed", duplicates),
		slog.Float64("completeness_pct", report.CompletenessPct),
		slog.Duration("elapsed", elapsed))

	return &Result{Incidents: engineered, Quality: report}, nil
}

func (p *Pipeline) record(ctx context.Context, parsed *dataprocessing.ParseResult, duplicates int, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.PipelineRuns.Add(ctx, 1)
	p.metrics.RowsParsed.Add(ctx, int64(len(parsed.Incidents)))
	p.metrics.RowsRejected.Add(ctx, int64(parsed.RejectedRows))
	p.metrics.DuplicatesRemoved.Add(ctx, int64(duplicates))
	p.metrics.PipelineDuration.Record(ctx, elapsed.Seconds())
}
