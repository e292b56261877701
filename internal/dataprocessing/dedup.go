package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"schoolpulse/pkg/contracts/domain"
)

// identityKey is the composite incident identity used for
// deduplication. An empty city still participates as the empty string.
// This is a deliberately weak key inherited from the source dataset:
// two genuinely distinct incidents at the same school on the same date
// are indistinguishable and will merge. That behavior is a documented
// policy choice, not a bug to strengthen here.
type identityKey struct {
	date   time.Time
	city   string
	state  string
	school string
}

// Deduplicator removes duplicate incident records, keeping the record
// with the lowest source row ID in each identity group.
type Deduplicator struct {
	logger *slog.Logger
}

// NewDeduplicator creates a deduplicator. A nil logger falls back to
// slog.Default.
func NewDeduplicator(logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{logger: logger.With(slog.String("component", "deduplicator"))}
}

// Deduplicate returns the surviving incidents in their original order
// plus the number of removed duplicates. Records with a nil incident
// date are never considered duplicates of each other. Running the
// result through Deduplicate again removes nothing.
func (d *Deduplicator) Deduplicate(ctx context.Context, incidents []domain.Incident) ([]domain.Incident, int) {
	seen := make(map[identityKey]int, len(incidents))
	survivors := make([]domain.Incident, 0, len(incidents))
	removed := 0

	for _, inc := range incidents {
		if inc.IncidentDate == nil {
			// Unknown dates never match, not even one another.
			survivors = append(survivors, inc)
			continue
		}

		key := identityKey{
			date:   *inc.IncidentDate,
			city:   inc.City,
			state:  inc.State,
			school: inc.SchoolName,
		}

		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = inc.SourceRowID
		survivors = append(survivors, inc)
	}

	if removed > 0 {
		d.logger.InfoContext(ctx, "duplicates removed",
			slog.Int("removed", removed),
			slog.Int("survivors", len(survivors)))
	}

	return survivors, removed
}
