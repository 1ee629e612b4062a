package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/money-vault/internal/service"
)

// ErrBackupExists is returned when the backup destination is already present.
var ErrBackupExists = errors.New("backup destination already exists")

// Backup writes a consistent copy of the ledger to destPath.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(destPath, "destPath"); err != nil {
		return err
	}

	destPath, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	if _, statErr := os.Stat(destPath); statErr == nil {
		return ErrBackupExists
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to backup database: %w", err)
	}

	slog.Info("Backed up ledger", "path", destPath)
	return nil
}

// Reset deletes every transaction and the import history. It returns the
// number of transactions removed.
func (s *SQLiteStorage) Reset(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM imports`); err != nil {
		return 0, fmt.Errorf("failed to delete import history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit reset: %w", ErrStoreUnavailable, err)
	}

	slog.Warn("Ledger reset", "deleted", deleted)
	return int(deleted), nil
}

// ImportHistory returns the most recent merge records, newest first.
func (s *SQLiteStorage) ImportHistory(ctx context.Context, limit int) ([]service.ImportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, source, accepted, duplicates, imported_at
		FROM imports
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []service.ImportRecord
	for rows.Next() {
		var rec service.ImportRecord
		if err := rows.Scan(&rec.BatchID, &rec.Source, &rec.Accepted, &rec.Duplicates, &rec.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
