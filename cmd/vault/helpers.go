package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/money-vault/internal/archive"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/statement"
	"github.com/Veraticus/money-vault/internal/storage"
)

// initStorage opens the ledger and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError("Could not open the ledger at "+cfg.DatabasePath, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (*civil.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("--%s must be a date like 2024-01-31", name), err)
	}
	return &d, nil
}

// parseMonthFlag parses a YYYY-MM value into the first and last day of the month.
func parseMonthFlag(value string) (*civil.Date, *civil.Date, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return nil, nil, common.NewUserError("--month must look like 2024-01", err)
	}
	first := civil.DateOf(t)
	last := first.AddMonths(1).AddDays(-1)
	return &first, &last, nil
}

// explainImportError converts pipeline failures into messages for the user.
func explainImportError(err error) string {
	switch {
	case errors.Is(err, archive.ErrWrongPassword):
		return "wrong archive password"
	case errors.Is(err, archive.ErrNoStatementFound):
		return "archive contains no statement file"
	case errors.Is(err, archive.ErrCorruptArchive):
		return "file is not a readable archive"
	case errors.Is(err, statement.ErrUnrecognizedFormat):
		return "statement format not recognized"
	case errors.Is(err, storage.ErrStoreUnavailable):
		return "ledger is unavailable, nothing was saved"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return err.Error()
}

func writeLine(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format+"\n", args...); err != nil {
		slog.Error("failed to write output", "error", err)
	}
}
