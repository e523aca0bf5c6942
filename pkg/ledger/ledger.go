// Package ledger keeps the history of gathertrim runs in SQLite: when each
// run started, which window it applied, which files it rewrote and whether
// the pristine copies were put back.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"

	"medik8s/gathertrim/pkg/config"
)

// Store records runs in a SQLite database.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger database.
func Open(cfg *config.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("db path cannot be empty"))
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	// PRAGMAs apply per connection; a single connection also serializes
	// writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "ledger"),
	}

	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("ledger opened", "driver", cfg.Driver, "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

func (s *Store) initialize(cfg *config.LedgerConfig) error {
	if cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError(s.driver, "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError(s.driver, "set_busy_timeout", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return NewStorageError(s.driver, "enable_foreign_keys", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError(s.driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion, toMillis(time.Now())); err != nil {
		return NewStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return NewStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// PingContext checks that the database answers.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginRun inserts a running run. An empty ID is filled with NewRunID.
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, bug_id, status, started_at, root, window_ms, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.BugID, run.Status,
		toMillis(run.StartedAt), run.Root, run.Window.Milliseconds(), toMillis(run.Deadline),
	)
	if err != nil {
		return NewStorageError(s.driver, "begin_run", err)
	}
	return nil
}

// FinishRun stores the final counters, archive and status of a run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, finished_at = ?, restored_at = ?,
			files_seen = ?, files_trimmed = ?, file_errors = ?, bytes_discarded = ?,
			archive_path = ?, archive_size = ?, error = ?
		WHERE id = ?`,
		run.Status, toMillis(*run.FinishedAt), nullMillis(run.RestoredAt),
		run.FilesSeen, run.FilesTrimmed, run.FileErrors, run.BytesDiscarded,
		nullString(run.ArchivePath), run.ArchiveSize, nullString(run.Error),
		run.ID,
	)
	if err != nil {
		return NewStorageError(s.driver, "finish_run", err)
	}
	return expectOne(res, s.driver, "finish_run")
}

// MarkRestored records that the backups of a run were put back.
func (s *Store) MarkRestored(ctx context.Context, runID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET restored_at = ? WHERE id = ?`, toMillis(at), runID)
	if err != nil {
		return NewStorageError(s.driver, "mark_restored", err)
	}
	return expectOne(res, s.driver, "mark_restored")
}

// RecordFiles stores the files rewritten by a run in one transaction.
func (s *Store) RecordFiles(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.driver, "record_files", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO files (run_id, path, kind, trim_start, original_size, new_size, backup_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return NewStorageError(s.driver, "record_files", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.RunID, f.Path, f.Kind, f.TrimStart, f.OriginalSize, f.NewSize, nullString(f.BackupPath)); err != nil {
			return NewStorageError(s.driver, "record_files", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return NewStorageError(s.driver, "record_files", err)
	}
	return nil
}

const runColumns = `id, mode, bug_id, status, started_at, finished_at, restored_at, root, window_ms, deadline,
	files_seen, files_trimmed, file_errors, bytes_discarded, archive_path, archive_size, error`

// GetRun returns a run by id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, NewStorageError(s.driver, "get_run", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewStorageError(s.driver, "get_run", err)
		}
		return nil, ErrNotFound
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, NewStorageError(s.driver, "scan", err)
	}
	return run, nil
}

// ListRuns returns runs matching q, newest first.
func (s *Store) ListRuns(ctx context.Context, q Query) ([]*Run, error) {
	var conditions []string
	var args []any

	if q.Mode != "" {
		conditions = append(conditions, "mode = ?")
		args = append(args, q.Mode)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, toMillis(q.Since))
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := 20
	if q.Limit > 0 {
		limit = q.Limit
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(s.driver, "list_runs", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, NewStorageError(s.driver, "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.driver, "list_runs", err)
	}
	return runs, nil
}

// Files returns the files rewritten by a run, ordered by path.
func (s *Store) Files(ctx context.Context, runID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, path, kind, trim_start, original_size, new_size, backup_path
		FROM files WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, NewStorageError(s.driver, "files", err)
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		var f File
		var backup sql.NullString
		if err := rows.Scan(&f.RunID, &f.Path, &f.Kind, &f.TrimStart, &f.OriginalSize, &f.NewSize, &backup); err != nil {
			return nil, NewStorageError(s.driver, "scan", err)
		}
		f.BackupPath = backup.String
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.driver, "files", err)
	}
	return files, nil
}

// LastSuccess returns the finish time of the newest succeeded run, or the
// zero time when there is none.
func (s *Store) LastSuccess(ctx context.Context) (time.Time, error) {
	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(finished_at) FROM runs WHERE status = ?`, StatusSucceeded).Scan(&ms)
	if err != nil {
		return time.Time{}, NewStorageError(s.driver, "last_success", err)
	}
	if !ms.Valid {
		return time.Time{}, nil
	}
	return fromMillis(ms.Int64), nil
}

// Prune deletes runs started before cutoff together with their files and
// returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, NewStorageError(s.driver, "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.driver, "prune", err)
	}
	if n > 0 {
		s.logger.Info("pruned run history", "deleted_count", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.driver, "close", err)
	}
	return nil
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var started, deadline, windowMs int64
	var finished, restored sql.NullInt64
	var archivePath, errMsg sql.NullString

	err := rows.Scan(
		&run.ID, &run.Mode, &run.BugID, &run.Status,
		&started, &finished, &restored, &run.Root, &windowMs, &deadline,
		&run.FilesSeen, &run.FilesTrimmed, &run.FileErrors, &run.BytesDiscarded,
		&archivePath, &run.ArchiveSize, &errMsg,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = fromMillis(started)
	run.Deadline = fromMillis(deadline)
	run.Window = time.Duration(windowMs) * time.Millisecond
	if finished.Valid {
		t := fromMillis(finished.Int64)
		run.FinishedAt = &t
	}
	if restored.Valid {
		t := fromMillis(restored.Int64)
		run.RestoredAt = &t
	}
	run.ArchivePath = archivePath.String
	run.Error = errMsg.String
	return &run, nil
}

func expectOne(res sql.Result, driver, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError(driver, op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
