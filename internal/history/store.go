// Package history keeps a SQLite journal of routing outcomes so moves can be
// reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"linksort/internal/errors"
	"linksort/pkg/types"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Entry is one journaled outcome.
type Entry struct {
	ID              string               `json:"id"`
	Time            time.Time            `json:"time"`
	Source          string               `json:"source"`
	Destination     string               `json:"destination,omitempty"`
	Rule            string               `json:"rule,omitempty"`
	Status          types.OrganizeStatus `json:"status"`
	Reason          string               `json:"reason,omitempty"`
	TemplateApplied bool                 `json:"template_applied"`
}

// Recorder accepts outcomes. The watch daemon depends on this rather than on
// Store so the journal stays optional.
type Recorder interface {
	Record(ctx context.Context, result types.OrganizeResult) error
}

// Store is the SQLite-backed journal.
type Store struct {
	db   *sql.DB
	path string
}

var _ Recorder = (*Store)(nil)

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewFileError("cannot create history directory", filepath.Dir(path), errors.FileOperationFailed, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewDatabaseError("open sqlite db", err).WithOperation("open")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, errors.NewDatabaseError("apply pragma "+pragma, execErr).WithOperation("open")
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record journals result under a fresh id.
func (s *Store) Record(ctx context.Context, result types.OrganizeResult) error {
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO moves (id, created_at, source, destination, rule, status, reason, template_applied)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		ts.UTC().Format(timeLayout),
		result.SourcePath,
		result.DestinationPath,
		result.Rule,
		string(result.Status),
		result.Reason,
		result.TemplateApplied,
	)
	if err != nil {
		return errors.NewDatabaseError("record outcome", err).WithOperation("record")
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, created_at, source, destination, rule, status, reason, template_applied
		FROM moves ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("query history", err).WithOperation("recent")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
			status  string
		)
		if err := rows.Scan(&e.ID, &created, &e.Source, &e.Destination, &e.Rule, &status, &e.Reason, &e.TemplateApplied); err != nil {
			return nil, errors.NewDatabaseError("scan history row", err).WithOperation("recent")
		}
		e.Status = types.OrganizeStatus(status)
		if e.Time, err = time.Parse(timeLayout, created); err != nil {
			return nil, errors.NewDatabaseError("parse history timestamp", err).WithOperation("recent")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("iterate history", err).WithOperation("recent")
	}
	return entries, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM moves")
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.NewDatabaseError("clear history", err).WithOperation("clear")
	}
	return removed, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
