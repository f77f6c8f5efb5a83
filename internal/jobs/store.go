package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vidtrack/internal/config"
)

// Store manages job persistence.
type Store struct {
	db  *sql.DB
	d   dialect
	dsn string
	now func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	query = s.d.rebind(query)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ensureContext(ctx), s.d.rebind(query), args...)
}

// Open connects to the job store selected by cfg.Store and initializes the schema.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("jobs: config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenDSN(context.Background(), cfg.Store.Backend, cfg.StoreDSN(), cfg.Store.MaxOpenConns)
}

// OpenDSN opens a store for an explicit backend and connection string.
func OpenDSN(ctx context.Context, backend, dsn string, maxOpenConns int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("jobs: dsn is required")
	}
	var d dialect
	switch backend {
	case config.StoreBackendSQLite, "":
		d = sqliteDialect
	case config.StoreBackendPostgres:
		d = postgresDialect
	default:
		return nil, fmt.Errorf("jobs: unsupported backend %q", backend)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}

	if d.name == sqliteDialect.name {
		// One writer connection keeps SQLite transactions serialized.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	} else {
		if maxOpenConns > 0 {
			db.SetMaxOpenConns(maxOpenConns)
		}
		db.SetConnMaxIdleTime(time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s db: %w", d.name, err)
		}
	}

	store := &Store{db: db, d: d, dsn: dsn, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Backend returns the dialect name ("sqlite" or "postgres").
func (s *Store) Backend() string {
	return s.d.name
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ensureContext(ctx))
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
