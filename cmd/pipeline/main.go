// Command pipeline runs the incident pipeline once: read a CSV or
// XLSX payload (a local file or the configured upstream source),
// engineer the dataset and write the CSV export plus quality and
// statistics reports to an output directory.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schoolpulse/internal/config"
	"schoolpulse/internal/exporter"
	"schoolpulse/internal/fetch"
	"schoolpulse/internal/filter"
	"schoolpulse/internal/infrastructure"
	"schoolpulse/internal/pipeline"
	"schoolpulse/internal/stats"
	"schoolpulse/pkg/contracts/domain"
)

var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04}

func main() {
	inFile := flag.String("in", "", "input CSV/XLSX file (defaults to fetching the configured source URL)")
	outDir := flag.String("out", "data/reports", "output directory for the export and reports")
	states := flag.String("states", "", "comma separated state codes to keep")
	preset := flag.String("preset", "", "filter preset: last_year_complete, fatal_only or mass_casualties_only")
	fatalOnly := flag.Bool("fatal-only", false, "keep fatal incidents only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	raw, err := readPayload(ctx, cfg, logger, *inFile)
	if err != nil {
		logger.Error("failed to read payload", "error", err)
		os.Exit(1)
	}

	format := pipeline.FormatCSV
	if bytes.HasPrefix(raw, xlsxMagic) {
		format = pipeline.FormatXLSX
	}

	p := pipeline.New(logger, nil, time.Now)
	result, err := p.Run(ctx, raw, format)
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	spec := domain.FilterSpec{
		Preset:    domain.FilterPreset(*preset),
		FatalOnly: *fatalOnly,
	}
	if *states != "" {
		for _, st := range strings.Split(*states, ",") {
			spec.States = append(spec.States, strings.ToUpper(strings.TrimSpace(st)))
		}
	}
	if spec.Preset != "" && !spec.Preset.Valid() {
		logger.Error("unknown preset", "preset", *preset)
		os.Exit(1)
	}

	dataset := filter.NewEngine(logger, time.Now).Apply(ctx, result.Incidents, spec)

	opts := stats.Options{
		TopK:               cfg.Pipeline.TopKStates,
		IncludePartialYear: cfg.Pipeline.IncludePartialYear,
	}
	snapshot := stats.NewCalculator(logger, time.Now).Snapshot(ctx, dataset, opts)

	if err := writeOutputs(*outDir, dataset, result.Quality, snapshot); err != nil {
		logger.Error("failed to write outputs", "error", err)
		os.Exit(1)
	}

	logger.Info("pipeline complete",
		"incidents", len(dataset),
		"rejected", result.Quality.RejectedRows,
		"duplicates", result.Quality.DuplicateCount,
		"completeness_pct", result.Quality.CompletenessPct,
		"out", *outDir)
}

func readPayload(ctx context.Context, cfg *config.Config, logger *slog.Logger, inFile string) ([]byte, error) {
	if inFile != "" {
		return os.ReadFile(inFile)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Source.FetchTimeout)
	defer cancel()
	return fetch.NewFetcher(cfg.Source, logger).Fetch(fetchCtx)
}

func writeOutputs(outDir string, dataset []domain.Incident, quality domain.QualityReport, snapshot domain.StatisticsSnapshot) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(outDir, "incidents.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := exporter.WriteCSV(f, dataset); err != nil {
		return fmt.Errorf("write incidents.csv: %w", err)
	}

	if err := writeJSON(filepath.Join(outDir, "quality.json"), quality); err != nil {
		return err
	}
	return writeJSON(filepath.Join(outDir, "stats.json"), snapshot)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
