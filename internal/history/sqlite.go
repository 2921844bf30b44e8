package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcooley/PlayFabExport/internal/model"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS export_runs (
	run_id        TEXT PRIMARY KEY,
	title_id      TEXT NOT NULL,
	segment_id    TEXT NOT NULL DEFAULT '',
	export_id     TEXT NOT NULL DEFAULT '',
	manifest_url  TEXT NOT NULL DEFAULT '',
	output        TEXT NOT NULL,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	shards_total  INTEGER NOT NULL DEFAULT 0,
	shards_merged INTEGER NOT NULL DEFAULT 0,
	rows_written  INTEGER NOT NULL DEFAULT 0,
	bytes_written INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	finished_at   TEXT
)`

const sqliteInsertSQL = `
	INSERT INTO export_runs (run_id, title_id, segment_id, export_id, output, status, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

const sqliteFinishSQL = `
	UPDATE export_runs
	SET export_id = ?, manifest_url = ?, status = ?, error = ?,
		shards_total = ?, shards_merged = ?, rows_written = ?, bytes_written = ?,
		finished_at = ?
	WHERE run_id = ?
`

// SQLiteStore is the Recorder for a local SQLite history file.
// Timestamps are stored as RFC 3339 text in UTC.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLiteStore over db.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger}
}

// EnsureSchema creates the export_runs table if it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("create export_runs: %w", err)
	}
	return nil
}

// Begin inserts run in the running state.
func (s *SQLiteStore) Begin(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertSQL,
		run.RunID.String(),
		run.TitleID,
		run.SegmentID,
		run.ExportID,
		run.Output,
		string(run.Status),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	s.logger.Debug("run recorded", "run_id", run.RunID, "status", run.Status)
	return nil
}

// Finish stores the outcome and counters of run.
func (s *SQLiteStore) Finish(ctx context.Context, run *model.Run) error {
	res, err := s.db.ExecContext(ctx, sqliteFinishSQL,
		run.ExportID,
		run.ManifestURL,
		string(run.Status),
		run.Error,
		run.Stats.ShardsTotal,
		run.Stats.ShardsMerged,
		run.Stats.RowsWritten,
		run.Stats.BytesWritten,
		formatTime(run.FinishedAt),
		run.RunID.String(),
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: no such run", run.RunID)
	}
	s.logger.Debug("run finished",
		"run_id", run.RunID,
		"status", run.Status,
		"rows", run.Stats.RowsWritten,
	)
	return nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
