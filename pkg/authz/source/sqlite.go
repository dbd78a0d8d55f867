package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/sentinel/pkg/authz"
)

// SQLiteStoreConfig contains configuration for the SQLite-backed store.
type SQLiteStoreConfig struct {
	// Path is the database file path.
	Path string

	// PollInterval is how often the change poller checks the version
	// counter. Default: 1 second.
	PollInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteStoreConfig returns the default SQLite store configuration
// for the given database path.
func DefaultSQLiteStoreConfig(path string) *SQLiteStoreConfig {
	return &SQLiteStoreConfig{
		Path:         path,
		PollInterval: time.Second,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore persists the authorization configuration in SQLite. Writers
// (PutPolicy, DeletePolicy, DeleteConfig) bump a version counter; a poller
// turns version steps into change batches, so consecutive writes between
// two polls are coalesced into a single observed transition.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	bcast  *broadcaster

	mu   sync.Mutex
	last *authz.AuthorizationConfig

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS authz_policies (
	idx         INTEGER PRIMARY KEY,
	resource    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	permissions TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS authz_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

INSERT OR IGNORE INTO authz_meta (key, value) VALUES ('version', 0);
INSERT OR IGNORE INTO authz_meta (key, value) VALUES ('present', 0);
`

// NewSQLiteStore opens (creating if necessary) the database and starts the
// change poller.
func NewSQLiteStore(cfg *SQLiteStoreConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With("component", "authz.source.sqlite"),
		bcast:  newBroadcaster(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if initial, err := s.readConfig(context.Background()); err == nil {
		s.last = initial
	}

	go s.poll(cfg.PollInterval)

	s.logger.Info("authorization sqlite store opened",
		"path", cfg.Path,
		"poll_interval_ms", cfg.PollInterval.Milliseconds(),
	)

	return s, nil
}

// ReadConfig implements authz.Store.
func (s *SQLiteStore) ReadConfig(ctx context.Context) (*authz.AuthorizationConfig, error) {
	return s.readConfig(ctx)
}

// Watch implements authz.Store.
func (s *SQLiteStore) Watch(ctx context.Context) (<-chan authz.ChangeBatch, error) {
	return s.bcast.subscribe(ctx), nil
}

// Close stops the poller and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.bcast.close()
		err = s.db.Close()
	})
	return err
}

// PutPolicy inserts or replaces a policy and marks the container present.
func (s *SQLiteStore) PutPolicy(ctx context.Context, p authz.Policy) error {
	perms, err := json.Marshal(p.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO authz_policies (idx, resource, description, permissions) VALUES (?, ?, ?, ?)`,
			p.Index, p.Resource, p.Description, string(perms),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE authz_meta SET value = 1 WHERE key = 'present'`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE authz_meta SET value = value + 1 WHERE key = 'version'`)
		return err
	})
}

// DeletePolicy removes the policy with the given index. The container
// stays present even if it becomes empty.
func (s *SQLiteStore) DeletePolicy(ctx context.Context, index int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM authz_policies WHERE idx = ?`, index); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE authz_meta SET value = value + 1 WHERE key = 'version'`)
		return err
	})
}

// DeleteConfig removes the container entirely: subsequent reads report an
// absent configuration.
func (s *SQLiteStore) DeleteConfig(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM authz_policies`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE authz_meta SET value = 0 WHERE key = 'present'`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE authz_meta SET value = value + 1 WHERE key = 'version'`)
		return err
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) readConfig(ctx context.Context) (*authz.AuthorizationConfig, error) {
	var present int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM authz_meta WHERE key = 'present'`,
	).Scan(&present); err != nil {
		return nil, fmt.Errorf("failed to read container state: %w", err)
	}
	if present == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, resource, description, permissions FROM authz_policies ORDER BY idx`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	cfg := &authz.AuthorizationConfig{}
	for rows.Next() {
		var p authz.Policy
		var perms string
		if err := rows.Scan(&p.Index, &p.Resource, &p.Description, &perms); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		if err := json.Unmarshal([]byte(perms), &p.Permissions); err != nil {
			return nil, fmt.Errorf("failed to decode permissions for policy %d: %w", p.Index, err)
		}
		cfg.Policies = append(cfg.Policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policy rows: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM authz_meta WHERE key = 'version'`,
	).Scan(&v)
	return v, err
}

// poll watches the version counter and publishes a change whenever it
// advances.
func (s *SQLiteStore) poll(interval time.Duration) {
	defer close(s.doneCh)

	ctx := context.Background()
	lastVersion, err := s.version(ctx)
	if err != nil {
		s.logger.Error("failed to read initial version", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			v, err := s.version(ctx)
			if err != nil {
				s.logger.Error("version poll failed", "error", err)
				continue
			}
			if v == lastVersion {
				continue
			}
			lastVersion = v

			cfg, err := s.readConfig(ctx)
			if err != nil {
				s.logger.Error("config read after version change failed", "error", err)
				continue
			}

			s.mu.Lock()
			before := s.last
			s.last = cfg
			s.mu.Unlock()

			s.logger.Debug("authorization config version advanced",
				"version", v,
				"present", cfg != nil,
			)

			s.bcast.publish(authz.Change{Before: before, After: cfg.Clone()})
		}
	}
}
