package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite audit configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/audit.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id           TEXT PRIMARY KEY,
	ts           INTEGER NOT NULL,
	path         TEXT NOT NULL,
	method       TEXT NOT NULL,
	allowed      INTEGER NOT NULL,
	reason       TEXT NOT NULL,
	policy_index INTEGER NOT NULL,
	role         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_records (ts);
CREATE INDEX IF NOT EXISTS idx_audit_path ON audit_records (path);
`

// NewSQLiteStorage creates a new SQLite audit backend, initializing the
// schema and enabling WAL mode.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Operation: "enable_wal", Cause: err}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Operation: "set_busy_timeout", Cause: err}
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Operation: "create_schema", Cause: err}
	}

	s := &SQLiteStorage{
		db:     db,
		logger: slog.Default().With("component", "authz.audit.sqlite"),
	}

	s.logger.Info("audit storage initialized", "path", config.Path)
	return s, nil
}

// Store implements Storage.
func (s *SQLiteStorage) Store(ctx context.Context, rec *Record) error {
	allowed := 0
	if rec.Allowed {
		allowed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, ts, path, method, allowed, reason, policy_index, role)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), rec.Path, rec.Method, allowed, rec.Reason, rec.PolicyIndex, rec.Role,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Operation: "store", Cause: err}
	}
	return nil
}

// List implements Storage. Records are returned newest first.
func (s *SQLiteStorage) List(ctx context.Context, q Query) ([]*Record, error) {
	var conds []string
	var args []any

	if q.Path != "" {
		conds = append(conds, "path = ?")
		args = append(args, q.Path)
	}
	if q.DeniedOnly {
		conds = append(conds, "allowed = 0")
	}

	query := `SELECT id, ts, path, method, allowed, reason, policy_index, role FROM audit_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "list", Cause: err}
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		var ts int64
		var allowed int
		if err := rows.Scan(&rec.ID, &ts, &rec.Path, &rec.Method, &allowed, &rec.Reason, &rec.PolicyIndex, &rec.Role); err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "scan", Cause: err}
		}
		rec.Timestamp = time.Unix(0, ts)
		rec.Allowed = allowed == 1
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "iterate", Cause: err}
	}
	return out, nil
}

// Count implements Storage.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records`).Scan(&n); err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "count", Cause: err}
	}
	return n, nil
}

// DeleteOlderThan implements Storage.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_records WHERE ts < ?`, cutoff.UnixNano(),
	)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "delete_older_than", Cause: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "rows_affected", Cause: err}
	}
	return deleted, nil
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
