// Package store persists curation runs, the current snapshot per tool, and
// the append-only version history.
package store

import (
	"context"
	"time"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// RunFilter specifies criteria for listing curation runs.
type RunFilter struct {
	Status       model.CurationStatus `json:"status,omitempty"`
	Tool         string               `json:"tool,omitempty"`
	CreatedAfter time.Time            `json:"created_after,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the curation pipeline.
//
// Callers must guarantee at most one in-flight curation per tool: the
// get-current / promote sequence is compare-and-swap shaped, and concurrent
// curations for the same tool could race version-number assignment. Promote
// itself assigns version numbers atomically, so distinct tools are always
// safe to curate in parallel.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, tool string) (*model.CurationRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.CurationStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.CurationResult) error
	GetRun(ctx context.Context, runID string) (*model.CurationRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.CurationRun, error)

	// Snapshots and versions. GetCurrent returns (nil, nil) when no snapshot
	// has been accepted yet. Promote replaces the current snapshot and, when
	// version is non-nil, appends it with the next sequential version number
	// for the tool — both writes happen in a single transaction, and the
	// returned record carries the assigned number.
	GetCurrent(ctx context.Context, tool string) (*model.Document, error)
	Promote(ctx context.Context, tool string, doc *model.Document, version *model.VersionRecord) (*model.VersionRecord, error)
	ListVersions(ctx context.Context, tool string) ([]model.VersionRecord, error)
	GetVersion(ctx context.Context, tool string, number int) (*model.VersionRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
