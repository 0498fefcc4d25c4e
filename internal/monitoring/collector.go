// Package monitoring gathers curation health metrics and raises webhook
// alerts when thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of curation health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsPartial   int     `json:"runs_partial"`
	RunsFailed    int     `json:"runs_failed"`
	RunsQueued    int     `json:"runs_queued"`
	FailRate      float64 `json:"fail_rate"`

	// Outcome metrics over runs that carried a result.
	VersionsCreated int     `json:"versions_created"`
	AvgQuality      float64 `json:"avg_quality"`
	AvgConfidence   float64 `json:"avg_confidence"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run history.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of curation metrics over the given lookback
// window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalQuality float64
	var qualityRuns int
	var totalConfidence float64
	var confidenceRuns int

	for _, r := range runs {
		switch r.Status {
		case model.CurationCompleted:
			snap.RunsCompleted++
		case model.CurationPartial:
			snap.RunsPartial++
		case model.CurationFailed:
			snap.RunsFailed++
		case model.CurationQueued:
			snap.RunsQueued++
		}
		if r.Result == nil {
			continue
		}
		if r.Result.VersionCreated != nil {
			snap.VersionsCreated++
		}
		if r.Result.QualityScore != nil {
			totalQuality += r.Result.QualityScore.Overall
			qualityRuns++
		}
		if r.Result.ConfidenceScore > 0 {
			totalConfidence += r.Result.ConfidenceScore
			confidenceRuns++
		}
	}

	finished := snap.RunsCompleted + snap.RunsPartial + snap.RunsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if qualityRuns > 0 {
		snap.AvgQuality = totalQuality / float64(qualityRuns)
	}
	if confidenceRuns > 0 {
		snap.AvgConfidence = totalConfidence / float64(confidenceRuns)
	}

	return snap, nil
}
