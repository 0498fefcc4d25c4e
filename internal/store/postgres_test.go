package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO curation_runs`).
		WithArgs(pgxmock.AnyArg(), "cursor", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "cursor")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.CurationQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE curation_runs SET status`).
		WithArgs("analyzing", pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing-run", model.CurationAnalyzing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, tool, status, result, created_at, updated_at FROM curation_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCurrent_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT document FROM current_snapshots`).
		WithArgs("unknown-tool").
		WillReturnError(pgx.ErrNoRows)

	doc, err := s.GetCurrent(context.Background(), "unknown-tool")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCurrent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	docJSON, err := json.Marshal(&model.Document{Description: "AI coding assistant"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT document FROM current_snapshots`).
		WithArgs("cursor").
		WillReturnRows(pgxmock.NewRows([]string{"document"}).AddRow(docJSON))

	doc, err := s.GetCurrent(context.Background(), "cursor")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "AI coding assistant", doc.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Promote_SnapshotOnly(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO current_snapshots`).
		WithArgs("cursor", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := s.Promote(context.Background(), "cursor", &model.Document{Description: "x"}, nil)
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Promote_WithVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO current_snapshots`).
		WithArgs("cursor", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO tool_versions`).
		WithArgs("cursor", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"version_number"}).AddRow(4))
	mock.ExpectCommit()

	version := &model.VersionRecord{
		CreatedAt: time.Now().UTC(),
		TriggeringChanges: []model.DataChange{
			{Type: model.VersionChange, FieldName: "version_current", NewValue: "2.0.0"},
		},
	}
	created, err := s.Promote(context.Background(), "cursor", &model.Document{Description: "x"}, version)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, 4, created.VersionNumber)
	assert.Equal(t, "x", created.Document.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Promote_VersionInsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO current_snapshots`).
		WithArgs("cursor", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO tool_versions`).
		WithArgs("cursor", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrTxClosed)
	mock.ExpectRollback()

	_, err := s.Promote(context.Background(), "cursor", &model.Document{}, &model.VersionRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert version")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListVersions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	docJSON, err := json.Marshal(&model.Document{Description: "v1"})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"version_number", "document", "triggering_changes", "created_at"}).
		AddRow(1, docJSON, []byte(`[]`), time.Now().UTC()).
		AddRow(2, docJSON, []byte(`[{"change_type":"version_change","field_name":"version_current"}]`), time.Now().UTC())

	mock.ExpectQuery(`SELECT version_number, document, triggering_changes, created_at FROM tool_versions`).
		WithArgs("cursor").
		WillReturnRows(rows)

	versions, err := s.ListVersions(context.Background(), "cursor")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].VersionNumber)
	require.Len(t, versions[1].TriggeringChanges, 1)
	assert.Equal(t, model.VersionChange, versions[1].TriggeringChanges[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
