package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

const transactionColumns = `fingerprint, date, amount, type, category, subcategory, description, source_account`

// Load returns the whole ledger ordered by date, then by insertion order.
func (s *SQLiteStorage) Load(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY date ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// Merge appends the candidates whose fingerprints are not yet in the ledger.
// Candidates repeated within the batch are counted as duplicates. The batch
// is committed as a whole or not at all.
func (s *SQLiteStorage) Merge(ctx context.Context, candidates []model.Transaction, opts service.MergeOptions) (model.MergeResult, error) {
	if err := validateContext(ctx); err != nil {
		return model.MergeResult{}, err
	}
	if err := validateTransactions(candidates); err != nil {
		return model.MergeResult{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batchID := uuid.NewString()

	var result model.MergeResult
	err := common.WithRetry(ctx, func() error {
		r, mergeErr := s.mergeOnce(ctx, batchID, candidates, opts)
		if mergeErr != nil {
			return classifyError(mergeErr)
		}
		result = r
		return nil
	}, s.retry)
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	slog.Debug("Merged batch",
		"batch_id", batchID,
		"source", opts.Source,
		"accepted", result.Accepted,
		"duplicates", result.Duplicates)

	return result, nil
}

func (s *SQLiteStorage) mergeOnce(ctx context.Context, batchID string, candidates []model.Transaction, opts service.MergeOptions) (model.MergeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`)
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	result := model.MergeResult{BatchID: batchID}
	for i := range candidates {
		txn := &candidates[i]
		res, execErr := stmt.ExecContext(ctx,
			txn.ComputeFingerprint(),
			txn.Date.String(),
			txn.Amount,
			string(txn.Type),
			txn.Category,
			txn.Subcategory,
			txn.Description,
			txn.SourceAccount,
			batchID,
		)
		if execErr != nil {
			return model.MergeResult{}, fmt.Errorf("failed to insert transaction at index %d: %w", i, execErr)
		}

		// Conflicts with stored rows and with rows inserted earlier in
		// this batch both surface as zero affected rows.
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return model.MergeResult{}, fmt.Errorf("failed to read insert result: %w", affErr)
		}
		if affected == 0 {
			result.Duplicates++
		} else {
			result.Accepted++
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO imports (batch_id, source, accepted, duplicates, imported_at)
		VALUES (?, ?, ?, ?, ?)
	`, batchID, opts.Source, result.Accepted, result.Duplicates, time.Now().UTC())
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to commit merge: %w", err)
	}

	return result, nil
}

// Transactions returns ledger entries matching filter, newest first.
func (s *SQLiteStorage) Transactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidDateRange, filter.To, filter.From)
	}

	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where = append(where, "description LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// Count returns the number of transactions in the ledger.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get transaction count: %w", err)
	}
	return count, nil
}

// UpdateClassification changes the category fields of one transaction.
// Identity fields are never touched, so the fingerprint stays valid.
func (s *SQLiteStorage) UpdateClassification(ctx context.Context, fingerprint, category, subcategory string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, subcategory = ?
		WHERE fingerprint = ?
	`, model.NormalizeCategory(category), model.NormalizeCategory(subcategory), fingerprint)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", fingerprint, common.ErrNotFound)
	}
	return nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn     model.Transaction
			date    string
			txnType string
		)
		if err := rows.Scan(
			&txn.Fingerprint,
			&date,
			&txn.Amount,
			&txnType,
			&txn.Category,
			&txn.Subcategory,
			&txn.Description,
			&txn.SourceAccount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		parsed, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q for %s", common.ErrDatabaseCorrupted, date, txn.Fingerprint)
		}
		txn.Date = parsed
		txn.Type = model.TxType(txnType)

		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
