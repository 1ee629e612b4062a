package storage

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

func seedAggregateLedger(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	batch := []model.Transaction{
		{Date: day(1), Amount: -1000, Type: model.TypeExpense, Category: "Food", Description: "lunch"},
		{Date: day(2), Amount: -2000, Type: model.TypeExpense, Category: "Food", Description: "dinner"},
		{Date: day(3), Amount: 500, Type: model.TypeExpense, Category: "Food", Description: "refund"},
		{Date: day(3), Amount: -7000, Type: model.TypeExpense, Category: "Travel", Description: "taxi"},
		{Date: day(3), Amount: -100, Type: model.TypeExpense, Category: "", Description: "misc"},
		{Date: day(4), Amount: 3000000, Type: model.TypeIncome, Category: "Salary", Description: "payroll"},
		{Date: day(4), Amount: -50000, Type: model.TypeTransfer, Category: "", Description: "to savings"},
		{Date: civil.Date{Year: 2024, Month: 2, Day: 1}, Amount: -300, Type: model.TypeExpense, Category: "Food", Description: "snack"},
	}
	if _, err := store.Merge(context.Background(), batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
}

func TestSQLiteStorage_AggregateByCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Two purchases and a refund
	batch := []model.Transaction{
		{Date: day(1), Amount: -1000, Type: model.TypeExpense, Category: "Food", Description: "a"},
		{Date: day(2), Amount: -2000, Type: model.TypeExpense, Category: "Food", Description: "b"},
		{Date: day(3), Amount: 500, Type: model.TypeExpense, Category: "Food", Description: "refund"},
	}
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	rows, err := store.Aggregate(ctx, service.AggregateQuery{GroupBy: service.GroupByCategory, Type: model.TypeExpense})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(rows))
	}
	if rows[0].Key != "Food" || rows[0].Total != 2500 || rows[0].Count != 3 {
		t.Errorf("Got %+v, want Food 2500 (3 rows)", rows[0])
	}
}

func TestSQLiteStorage_Aggregate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	seedAggregateLedger(t, store)

	from := day(2)
	to := day(3)

	tests := []struct {
		name  string
		query service.AggregateQuery
		want  []service.AggregateRow
	}{
		{
			name:  "expenses by category sorted by spend",
			query: service.AggregateQuery{GroupBy: service.GroupByCategory},
			want: []service.AggregateRow{
				{Key: "Travel", Total: 7000, Count: 1},
				{Key: "Food", Total: 2800, Count: 4},
				{Key: "", Total: 100, Count: 1},
			},
		},
		{
			name:  "expenses by date ascending",
			query: service.AggregateQuery{GroupBy: service.GroupByDate, Type: model.TypeExpense},
			want: []service.AggregateRow{
				{Key: "2024-01-01", Total: 1000, Count: 1},
				{Key: "2024-01-02", Total: 2000, Count: 1},
				{Key: "2024-01-03", Total: 6600, Count: 3},
				{Key: "2024-02-01", Total: 300, Count: 1},
			},
		},
		{
			name:  "expenses by category in date range",
			query: service.AggregateQuery{GroupBy: service.GroupByCategory, From: &from, To: &to},
			want: []service.AggregateRow{
				{Key: "Travel", Total: 7000, Count: 1},
				{Key: "Food", Total: 1500, Count: 2},
				{Key: "", Total: 100, Count: 1},
			},
		},
		{
			name:  "expenses by month",
			query: service.AggregateQuery{GroupBy: service.GroupByMonth},
			want: []service.AggregateRow{
				{Key: "2024-01", Total: 9600, Count: 5},
				{Key: "2024-02", Total: 300, Count: 1},
			},
		},
		{
			name:  "income keeps stored sign",
			query: service.AggregateQuery{GroupBy: service.GroupByCategory, Type: model.TypeIncome},
			want: []service.AggregateRow{
				{Key: "Salary", Total: 3000000, Count: 1},
			},
		},
		{
			name:  "transfers keep stored sign",
			query: service.AggregateQuery{GroupBy: service.GroupByDate, Type: model.TypeTransfer},
			want: []service.AggregateRow{
				{Key: "2024-01-04", Total: -50000, Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Aggregate(ctx, tt.query)
			if err != nil {
				t.Fatalf("Aggregate failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d rows, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Row %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStorage_AggregateValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Aggregate(ctx, service.AggregateQuery{GroupBy: "merchant"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery, got %v", err)
	}

	from := day(5)
	to := day(1)
	_, err = store.Aggregate(ctx, service.AggregateQuery{From: &from, To: &to})
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("Expected ErrInvalidDateRange, got %v", err)
	}

	rows, err := store.Aggregate(ctx, service.AggregateQuery{})
	if err != nil {
		t.Fatalf("Aggregate on empty ledger failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}
