package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/store"
)

// stubStore returns a fixed run list; only ListRuns matters here.
type stubStore struct {
	store.Store
	runs   []model.CurationRun
	filter store.RunFilter
}

func (s *stubStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.CurationRun, error) {
	s.filter = filter
	return s.runs, nil
}

func TestCollectorAggregatesRuns(t *testing.T) {
	st := &stubStore{runs: []model.CurationRun{
		{Status: model.CurationCompleted, Result: &model.CurationResult{
			VersionCreated:  &model.VersionRecord{VersionNumber: 1},
			QualityScore:    &model.QualityScore{Overall: 0.9},
			ConfidenceScore: 0.8,
		}},
		{Status: model.CurationCompleted, Result: &model.CurationResult{
			QualityScore:    &model.QualityScore{Overall: 0.7},
			ConfidenceScore: 0.6,
		}},
		{Status: model.CurationPartial, Result: &model.CurationResult{
			QualityScore: &model.QualityScore{Overall: 0.5},
		}},
		{Status: model.CurationFailed},
		{Status: model.CurationQueued},
	}}

	snap, err := NewCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsCompleted)
	assert.Equal(t, 1, snap.RunsPartial)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsQueued)
	assert.InDelta(t, 0.25, snap.FailRate, 1e-9) // 1 failed / 4 finished
	assert.Equal(t, 1, snap.VersionsCreated)
	assert.InDelta(t, 0.7, snap.AvgQuality, 1e-9)    // (0.9+0.7+0.5)/3
	assert.InDelta(t, 0.7, snap.AvgConfidence, 1e-9) // (0.8+0.6)/2
	assert.Equal(t, 24, snap.LookbackHours)

	// The lookback window was passed down as a cutoff filter.
	assert.False(t, st.filter.CreatedAfter.IsZero())
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), st.filter.CreatedAfter, time.Minute)
}

func TestCollectorEmptyWindow(t *testing.T) {
	snap, err := NewCollector(&stubStore{}).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.RunsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.AvgQuality)
}
