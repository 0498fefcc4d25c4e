package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS curation_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tool       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS current_snapshots (
	tool       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tool_versions (
	tool               TEXT NOT NULL,
	version_number     INTEGER NOT NULL,
	document           JSONB NOT NULL,
	triggering_changes JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tool, version_number)
);

CREATE INDEX IF NOT EXISTS idx_curation_runs_status ON curation_runs(status);
CREATE INDEX IF NOT EXISTS idx_curation_runs_tool ON curation_runs(tool);
CREATE INDEX IF NOT EXISTS idx_tool_versions_tool ON tool_versions(tool);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, tool string) (*model.CurationRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO curation_runs (id, tool, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, tool, string(model.CurationQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.CurationRun{
		ID:        id,
		Tool:      tool,
		Status:    model.CurationQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.CurationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE curation_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.CurationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE curation_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(result.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.CurationRun, error) {
	var r model.CurationRun
	var resultNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, tool, status, result, created_at, updated_at FROM curation_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Tool, &r.Status, &resultNull, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if resultNull != nil {
		r.Result = &model.CurationResult{}
		if err := json.Unmarshal(*resultNull, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.CurationRun, error) {
	query := `SELECT id, tool, status, result, created_at, updated_at FROM curation_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Tool != "" {
		query += fmt.Sprintf(` AND tool = $%d`, argIdx)
		args = append(args, filter.Tool)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.CurationRun
	for rows.Next() {
		var r model.CurationRun
		var resultNull *[]byte

		if err := rows.Scan(&r.ID, &r.Tool, &r.Status, &resultNull, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if resultNull != nil {
			r.Result = &model.CurationResult{}
			if err := json.Unmarshal(*resultNull, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetCurrent(ctx context.Context, tool string) (*model.Document, error) {
	var docJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT document FROM current_snapshots WHERE tool = $1`,
		tool,
	).Scan(&docJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get current %s", tool)
	}

	var doc model.Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal document")
	}
	return &doc, nil
}

func (s *PostgresStore) Promote(ctx context.Context, tool string, doc *model.Document, version *model.VersionRecord) (*model.VersionRecord, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal document")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin promote")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO current_snapshots (tool, document, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (tool) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		tool, docJSON, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: put current %s", tool)
	}

	var created *model.VersionRecord
	if version != nil {
		changesJSON, err := json.Marshal(version.TriggeringChanges)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal triggering changes")
		}

		createdAt := version.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		// The subselect assigns the next sequential number atomically; the
		// composite primary key rejects any racing duplicate outright.
		var assigned int
		err = tx.QueryRow(ctx,
			`INSERT INTO tool_versions (tool, version_number, document, triggering_changes, created_at)
			 VALUES ($1, (SELECT COALESCE(MAX(version_number), 0) + 1 FROM tool_versions WHERE tool = $1), $2, $3, $4)
			 RETURNING version_number`,
			tool, docJSON, changesJSON, createdAt,
		).Scan(&assigned)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert version for %s", tool)
		}

		rec := *version
		rec.VersionNumber = assigned
		rec.Document = *doc
		rec.CreatedAt = createdAt
		created = &rec
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit promote")
	}
	return created, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, tool string) ([]model.VersionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT version_number, document, triggering_changes, created_at FROM tool_versions
		 WHERE tool = $1 ORDER BY version_number ASC`,
		tool,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list versions %s", tool)
	}
	defer rows.Close()

	var versions []model.VersionRecord
	for rows.Next() {
		var rec model.VersionRecord
		var docJSON, changesJSON []byte

		if err := rows.Scan(&rec.VersionNumber, &docJSON, &changesJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan version")
		}
		if err := json.Unmarshal(docJSON, &rec.Document); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal version document")
		}
		if err := json.Unmarshal(changesJSON, &rec.TriggeringChanges); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal triggering changes")
		}
		versions = append(versions, rec)
	}
	return versions, eris.Wrap(rows.Err(), "postgres: list versions iterate")
}

func (s *PostgresStore) GetVersion(ctx context.Context, tool string, number int) (*model.VersionRecord, error) {
	var rec model.VersionRecord
	var docJSON, changesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT version_number, document, triggering_changes, created_at FROM tool_versions
		 WHERE tool = $1 AND version_number = $2`,
		tool, number,
	).Scan(&rec.VersionNumber, &docJSON, &changesJSON, &rec.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get version %d for %s", number, tool)
	}

	if err := json.Unmarshal(docJSON, &rec.Document); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal version document")
	}
	if err := json.Unmarshal(changesJSON, &rec.TriggeringChanges); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal triggering changes")
	}
	return &rec, nil
}
