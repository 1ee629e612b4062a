package storage

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

func TestSQLiteStorage_IdempotentReimport(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createTestTransactions(10)

	first, err := store.Merge(ctx, batch, service.MergeOptions{Source: "first.zip"})
	if err != nil {
		t.Fatalf("First merge failed: %v", err)
	}
	if first.Accepted != 10 || first.Duplicates != 0 {
		t.Errorf("First merge = %+v, want accepted=10 duplicates=0", first)
	}
	if first.BatchID == "" {
		t.Error("Expected a batch ID")
	}

	second, err := store.Merge(ctx, batch, service.MergeOptions{Source: "second.zip"})
	if err != nil {
		t.Fatalf("Second merge failed: %v", err)
	}
	if second.Accepted != 0 || second.Duplicates != 10 {
		t.Errorf("Second merge = %+v, want accepted=0 duplicates=10", second)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 10 {
		t.Errorf("Expected 10 transactions, got %d", len(loaded))
	}
}

func TestSQLiteStorage_SelfDuplicateBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	row := model.Transaction{
		Date:          day(3),
		Amount:        -4500,
		Type:          model.TypeExpense,
		Description:   "스타벅스",
		SourceAccount: "신한카드",
	}

	res, err := store.Merge(ctx, []model.Transaction{row, row}, service.MergeOptions{})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Accepted != 1 || res.Duplicates != 1 {
		t.Errorf("Merge = %+v, want accepted=1 duplicates=1", res)
	}
}

func TestSQLiteStorage_CategoryChangeIsStillDuplicate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createTestTransactions(3)
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	edited := make([]model.Transaction, len(batch))
	copy(edited, batch)
	edited[1].Category = "쇼핑"
	edited[1].Subcategory = "온라인"

	res, err := store.Merge(ctx, edited, service.MergeOptions{})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Accepted != 0 || res.Duplicates != 3 {
		t.Errorf("Merge = %+v, want accepted=0 duplicates=3", res)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	// The stored classification is kept, not overwritten by the re-import.
	for _, txn := range loaded {
		if txn.Category != "식비" {
			t.Errorf("Expected stored category to be kept, got %q", txn.Category)
		}
	}
}

func TestSQLiteStorage_LoadOrdering(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.Transaction{
		{Date: day(5), Amount: -1, Type: model.TypeExpense, Description: "c"},
		{Date: day(2), Amount: -1, Type: model.TypeExpense, Description: "a"},
		{Date: day(5), Amount: -1, Type: model.TypeExpense, Description: "d"},
		{Date: day(2), Amount: -1, Type: model.TypeExpense, Description: "b"},
	}
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	later := []model.Transaction{
		{Date: day(2), Amount: -1, Type: model.TypeExpense, Description: "e"},
	}
	if _, err := store.Merge(ctx, later, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	want := []string{"a", "b", "e", "c", "d"}
	if len(loaded) != len(want) {
		t.Fatalf("Expected %d transactions, got %d", len(want), len(loaded))
	}
	for i, txn := range loaded {
		if txn.Description != want[i] {
			t.Errorf("Position %d: got %q, want %q", i, txn.Description, want[i])
		}
		if txn.Fingerprint != txn.ComputeFingerprint() {
			t.Errorf("Position %d: stored fingerprint does not match identity fields", i)
		}
	}
}

func TestSQLiteStorage_LoadReturnsCopies(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.Merge(ctx, createTestTransactions(1), service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	first, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	first[0].Category = "mutated"

	second, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if second[0].Category != "식비" {
		t.Errorf("Caller mutation leaked into the store: %q", second[0].Category)
	}
}

func TestSQLiteStorage_MergeFailureCommitsNothing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Simulate the medium rejecting a write halfway through the batch.
	if _, err := store.db.Exec(`
		CREATE TRIGGER fail_insert BEFORE INSERT ON transactions
		WHEN NEW.description = 'boom'
		BEGIN
			SELECT RAISE(ABORT, 'medium failure');
		END
	`); err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	batch := createTestTransactions(3)
	batch = append(batch, model.Transaction{
		Date: day(9), Amount: -1, Type: model.TypeExpense, Description: "boom",
	})

	_, err := store.Merge(ctx, batch, service.MergeOptions{Source: "broken.zip"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected nothing committed, found %d transactions", count)
	}

	history, err := store.ImportHistory(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected no import record, got %d", len(history))
	}
}

func TestSQLiteStorage_MergeOnClosedStore(t *testing.T) {
	store, cleanup := createTestStorage(t)
	cleanup()

	_, err := store.Merge(context.Background(), createTestTransactions(1), service.MergeOptions{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSQLiteStorage_MergeRejectsInvalidCandidates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	batch := createTestTransactions(2)
	batch[1].Type = "refund"

	_, err := store.Merge(context.Background(), batch, service.MergeOptions{})
	if !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("Expected ErrInvalidTransaction, got %v", err)
	}
}

func TestSQLiteStorage_Transactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.Transaction{
		{Date: day(1), Amount: -5000, Type: model.TypeExpense, Category: "식비", Description: "김밥천국"},
		{Date: day(2), Amount: -4500, Type: model.TypeExpense, Category: "카페", Description: "스타벅스 100%"},
		{Date: day(3), Amount: 3000000, Type: model.TypeIncome, Category: "급여", Description: "월급"},
		{Date: day(4), Amount: -12000, Type: model.TypeExpense, Category: "식비", Description: "김밥 전문점"},
	}
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	from := day(2)
	to := day(3)

	tests := []struct {
		name   string
		want   []string
		filter service.TransactionFilter
	}{
		{
			name:   "all newest first",
			filter: service.TransactionFilter{},
			want:   []string{"김밥 전문점", "월급", "스타벅스 100%", "김밥천국"},
		},
		{
			name:   "date range",
			filter: service.TransactionFilter{From: &from, To: &to},
			want:   []string{"월급", "스타벅스 100%"},
		},
		{
			name:   "category",
			filter: service.TransactionFilter{Category: "식비"},
			want:   []string{"김밥 전문점", "김밥천국"},
		},
		{
			name:   "search",
			filter: service.TransactionFilter{Search: "김밥"},
			want:   []string{"김밥 전문점", "김밥천국"},
		},
		{
			name:   "search escapes wildcards",
			filter: service.TransactionFilter{Search: "100%"},
			want:   []string{"스타벅스 100%"},
		},
		{
			name:   "limit",
			filter: service.TransactionFilter{Limit: 1},
			want:   []string{"김밥 전문점"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Transactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Transactions failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d transactions, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].Description != tt.want[i] {
					t.Errorf("Position %d: got %q, want %q", i, got[i].Description, tt.want[i])
				}
			}
		})
	}

	t.Run("inverted range", func(t *testing.T) {
		_, err := store.Transactions(ctx, service.TransactionFilter{From: &to, To: &from})
		if !errors.Is(err, ErrInvalidDateRange) {
			t.Errorf("Expected ErrInvalidDateRange, got %v", err)
		}
	})
}

func TestSQLiteStorage_UpdateClassification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createTestTransactions(1)
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	fp := batch[0].ComputeFingerprint()
	if err := store.UpdateClassification(ctx, fp, " 외식 ", "한식"); err != nil {
		t.Fatalf("UpdateClassification failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded[0].Category != "외식" || loaded[0].Subcategory != "한식" {
		t.Errorf("Got category %q/%q", loaded[0].Category, loaded[0].Subcategory)
	}
	if loaded[0].Fingerprint != fp {
		t.Error("Fingerprint changed after reclassification")
	}

	// Placeholders clear the category the same way an import does.
	if err := store.UpdateClassification(ctx, fp, "-", " 미분류 "); err != nil {
		t.Fatalf("UpdateClassification failed: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded[0].Category != "" || loaded[0].Subcategory != "" {
		t.Errorf("Expected placeholders to clear category, got %q/%q", loaded[0].Category, loaded[0].Subcategory)
	}

	err = store.UpdateClassification(ctx, "missing", "x", "")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_LoadEmpty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty ledger, got %d", len(loaded))
	}
}

func TestSQLiteStorage_DatesRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	leap := civil.Date{Year: 2024, Month: 2, Day: 29}
	batch := []model.Transaction{{Date: leap, Amount: 1, Type: model.TypeTransfer, Description: "x"}}
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded[0].Date != leap {
		t.Errorf("Got date %s, want %s", loaded[0].Date, leap)
	}
	if loaded[0].Type != model.TypeTransfer {
		t.Errorf("Got type %s, want transfer", loaded[0].Type)
	}
}

func TestSQLiteStorage_OutOfRangeDateNeverReachesLedger(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createTestTransactions(2)
	batch[1].Date = civil.Date{Year: 57315, Month: 7, Day: 10}

	_, err := store.Merge(ctx, batch, service.MergeOptions{Source: "bad.csv"})
	if !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("Expected ErrInvalidTransaction, got %v", err)
	}

	// The batch is rejected whole and the ledger stays readable.
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load after rejected merge: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty ledger, got %d rows", len(loaded))
	}
}

func TestSQLiteStorage_EdgeRowsRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.Transaction{
		{Date: civil.Date{Year: 9999, Month: 12, Day: 31}, Amount: 9223372036854775807, Type: model.TypeIncome, Description: "max"},
		{Date: civil.Date{Year: 1, Month: 1, Day: 1}, Amount: -9223372036854775807, Type: model.TypeExpense, Description: "min"},
		{Date: civil.Date{Year: 2024, Month: 2, Day: 29}, Amount: 0, Type: model.TypeIncome, Description: "zero"},
	}
	if _, err := store.Merge(ctx, batch, service.MergeOptions{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(loaded))
	}

	wantOrder := []string{"min", "zero", "max"}
	for i, want := range wantOrder {
		if loaded[i].Description != want {
			t.Errorf("Row %d: got %q, want %q", i, loaded[i].Description, want)
		}
	}
	if loaded[0].Amount != -9223372036854775807 || loaded[2].Amount != 9223372036854775807 {
		t.Errorf("Amounts changed in storage: %d, %d", loaded[0].Amount, loaded[2].Amount)
	}
	if loaded[0].Date != batch[1].Date || loaded[2].Date != batch[0].Date {
		t.Errorf("Dates changed in storage: %s, %s", loaded[0].Date, loaded[2].Date)
	}
}
