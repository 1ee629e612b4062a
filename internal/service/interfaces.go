// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/money-vault/internal/model"
)

// GroupBy selects the key an aggregate query groups by.
type GroupBy string

// Aggregate grouping keys.
const (
	GroupByCategory GroupBy = "category"
	GroupByDate     GroupBy = "date"
	GroupByMonth    GroupBy = "month"
)

// AggregateQuery describes a grouped sum over the ledger.
// Type defaults to expense. From and To are inclusive when set.
type AggregateQuery struct {
	From    *civil.Date
	To      *civil.Date
	GroupBy GroupBy
	Type    model.TxType
}

// AggregateRow is one group of an aggregate result. For expense queries
// Total is money spent (outflow positive), otherwise the stored sum.
type AggregateRow struct {
	Key   string
	Total int64
	Count int
}

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	From     *civil.Date
	To       *civil.Date
	Category string
	Search   string
	Limit    int
}

// ImportRecord describes one merge call recorded in the ledger history.
type ImportRecord struct {
	ImportedAt time.Time
	BatchID    string
	Source     string
	Accepted   int
	Duplicates int
}

// MergeOptions carries metadata recorded alongside a merge.
type MergeOptions struct {
	Source string
}

// Ledger is the durable, deduplicated collection of transactions.
type Ledger interface {
	Load(ctx context.Context) ([]model.Transaction, error)
	Merge(ctx context.Context, candidates []model.Transaction, opts MergeOptions) (model.MergeResult, error)
	Aggregate(ctx context.Context, query AggregateQuery) ([]AggregateRow, error)
}

// Storage is the full persistence layer used by the CLI.
type Storage interface {
	Ledger

	Transactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	Count(ctx context.Context) (int, error)
	UpdateClassification(ctx context.Context, fingerprint, category, subcategory string) error
	ImportHistory(ctx context.Context, limit int) ([]ImportRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Backup(ctx context.Context, destPath string) error
	Reset(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
