package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mcooley/PlayFabExport/internal/model"
)

// Recorder persists the lifecycle of a run.
type Recorder interface {
	Begin(ctx context.Context, run *model.Run) error
	Finish(ctx context.Context, run *model.Run) error
}

// Nop discards every run. It is used when history is disabled.
type Nop struct{}

func (Nop) Begin(context.Context, *model.Run) error { return nil }
func (Nop) Finish(context.Context, *model.Run) error { return nil }

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS export_runs (
	run_id        UUID PRIMARY KEY,
	title_id      TEXT NOT NULL,
	segment_id    TEXT NOT NULL DEFAULT '',
	export_id     TEXT NOT NULL DEFAULT '',
	manifest_url  TEXT NOT NULL DEFAULT '',
	output        TEXT NOT NULL,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	shards_total  INTEGER NOT NULL DEFAULT 0,
	shards_merged INTEGER NOT NULL DEFAULT 0,
	rows_written  BIGINT NOT NULL DEFAULT 0,
	bytes_written BIGINT NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
)`

const insertSQL = `
	INSERT INTO export_runs (run_id, title_id, segment_id, export_id, output, status, started_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const finishSQL = `
	UPDATE export_runs
	SET export_id = $2, manifest_url = $3, status = $4, error = $5,
		shards_total = $6, shards_merged = $7, rows_written = $8, bytes_written = $9,
		finished_at = $10
	WHERE run_id = $1
`

// Store is the PostgreSQL Recorder.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store over db.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the export_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create export_runs: %w", err)
	}
	return nil
}

// Begin inserts run in the running state.
func (s *Store) Begin(ctx context.Context, run *model.Run) error {
	if _, err := s.db.Exec(ctx, insertSQL, beginArgs(run)...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	s.logger.Debug("run recorded", "run_id", run.RunID, "status", run.Status)
	return nil
}

// Finish stores the outcome and counters of run.
func (s *Store) Finish(ctx context.Context, run *model.Run) error {
	tag, err := s.db.Exec(ctx, finishSQL, finishArgs(run)...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: no such run", run.RunID)
	}
	s.logger.Debug("run finished",
		"run_id", run.RunID,
		"status", run.Status,
		"rows", run.Stats.RowsWritten,
	)
	return nil
}

func beginArgs(run *model.Run) []any {
	return []any{
		run.RunID,
		run.TitleID,
		run.SegmentID,
		run.ExportID,
		run.Output,
		string(run.Status),
		run.StartedAt,
	}
}

func finishArgs(run *model.Run) []any {
	return []any{
		run.RunID,
		run.ExportID,
		run.ManifestURL,
		string(run.Status),
		run.Error,
		run.Stats.ShardsTotal,
		run.Stats.ShardsMerged,
		run.Stats.RowsWritten,
		run.Stats.BytesWritten,
		run.FinishedAt,
	}
}
