package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS curation_runs (
	id         TEXT PRIMARY KEY,
	tool       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS current_snapshots (
	tool       TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tool_versions (
	tool               TEXT NOT NULL,
	version_number     INTEGER NOT NULL,
	document           TEXT NOT NULL,
	triggering_changes TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (tool, version_number)
);

CREATE INDEX IF NOT EXISTS idx_curation_runs_status ON curation_runs(status);
CREATE INDEX IF NOT EXISTS idx_curation_runs_tool ON curation_runs(tool);
CREATE INDEX IF NOT EXISTS idx_tool_versions_tool ON tool_versions(tool);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, tool string) (*model.CurationRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO curation_runs (id, tool, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, tool, string(model.CurationQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.CurationRun{
		ID:        id,
		Tool:      tool,
		Status:    model.CurationQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.CurationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE curation_runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.CurationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE curation_runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(result.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.CurationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tool, status, result, created_at, updated_at FROM curation_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.CurationRun, error) {
	query := `SELECT id, tool, status, result, created_at, updated_at FROM curation_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, filter.Tool)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.CurationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCurrent(ctx context.Context, tool string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document FROM current_snapshots WHERE tool = ?`,
		tool,
	)

	var docJSON string
	err := row.Scan(&docJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get current %s", tool)
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal document")
	}
	return &doc, nil
}

func (s *SQLiteStore) Promote(ctx context.Context, tool string, doc *model.Document, version *model.VersionRecord) (*model.VersionRecord, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal document")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin promote")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO current_snapshots (tool, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tool) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		tool, string(docJSON), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: put current %s", tool)
	}

	var created *model.VersionRecord
	if version != nil {
		// Read-max-increment-insert inside the transaction keeps version
		// numbers strictly sequential per tool.
		var next int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version_number), 0) + 1 FROM tool_versions WHERE tool = ?`,
			tool,
		).Scan(&next)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: next version for %s", tool)
		}

		changesJSON, err := json.Marshal(version.TriggeringChanges)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal triggering changes")
		}

		createdAt := version.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO tool_versions (tool, version_number, document, triggering_changes, created_at) VALUES (?, ?, ?, ?, ?)`,
			tool, next, string(docJSON), string(changesJSON), createdAt,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert version %d for %s", next, tool)
		}

		rec := *version
		rec.VersionNumber = next
		rec.Document = *doc
		rec.CreatedAt = createdAt
		created = &rec
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit promote")
	}
	return created, nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, tool string) ([]model.VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_number, document, triggering_changes, created_at FROM tool_versions
		 WHERE tool = ? ORDER BY version_number ASC`,
		tool,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list versions %s", tool)
	}
	defer rows.Close()

	var versions []model.VersionRecord
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *rec)
	}
	return versions, eris.Wrap(rows.Err(), "sqlite: list versions iterate")
}

func (s *SQLiteStore) GetVersion(ctx context.Context, tool string, number int) (*model.VersionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_number, document, triggering_changes, created_at FROM tool_versions
		 WHERE tool = ? AND version_number = ?`,
		tool, number,
	)
	rec, err := scanVersion(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get version %d for %s", number, tool)
	}
	return rec, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.CurationRun, error) {
	var r model.CurationRun
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Tool, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.CurationResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func scanVersion(row scannable) (*model.VersionRecord, error) {
	var rec model.VersionRecord
	var docJSON, changesJSON string

	err := row.Scan(&rec.VersionNumber, &docJSON, &changesJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("version not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan version")
	}

	if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal version document")
	}
	if err := json.Unmarshal([]byte(changesJSON), &rec.TriggeringChanges); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal triggering changes")
	}
	return &rec, nil
}
