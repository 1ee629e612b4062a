// Package storage provides the data persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidQuery       = errors.New("invalid aggregate query")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a batch of merge candidates.
func validateTransactions(transactions []model.Transaction) error {
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if !txn.Date.IsValid() {
		return fmt.Errorf("%w: invalid date %s", ErrInvalidTransaction, txn.Date)
	}
	// Dates are stored as YYYY-MM-DD text and must parse back and sort.
	if txn.Date.Year < 1 || txn.Date.Year > 9999 {
		return fmt.Errorf("%w: date %s is out of range", ErrInvalidTransaction, txn.Date)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: invalid type %q", ErrInvalidTransaction, txn.Type)
	}
	return nil
}

// validateQuery checks an aggregate query and fills in defaults.
func validateQuery(q *service.AggregateQuery) error {
	switch q.GroupBy {
	case service.GroupByCategory, service.GroupByDate, service.GroupByMonth:
	case "":
		q.GroupBy = service.GroupByCategory
	default:
		return fmt.Errorf("%w: unknown grouping %q", ErrInvalidQuery, q.GroupBy)
	}

	if q.Type == "" {
		q.Type = model.TypeExpense
	}
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuery, q.Type)
	}

	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidDateRange, q.To, q.From)
	}
	return nil
}
