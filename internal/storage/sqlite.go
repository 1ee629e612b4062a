package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/service"
)

// ErrStoreUnavailable is returned when the durable medium cannot be opened
// or written. Nothing is committed when it is returned.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// SQLiteStorage implements the ledger using SQLite.
type SQLiteStorage struct {
	db      *sql.DB
	dbPath  string
	retry   service.RetryOptions
	writeMu sync.Mutex
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithRetryOptions overrides the retry policy used for transient write failures.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(s *SQLiteStorage) {
		s.retry = opts
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrStoreUnavailable, err)
	}

	// Writers take the database lock at BEGIN so duplicate checks and
	// inserts cannot interleave with another process.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStoreUnavailable, err)
	}

	// A single connection serializes statements, so every read observes
	// either all or none of a concurrent merge.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrStoreUnavailable, err)
	}

	s := &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		retry: service.RetryOptions{
			MaxAttempts:  4,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// classifyError marks lock contention as retryable and everything else,
// such as constraint or disk errors, as permanent.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", common.ErrBusy, err)
	}
	return common.Permanent(err)
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
