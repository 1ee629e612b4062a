package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

// Aggregate sums ledger amounts per group using integer arithmetic.
//
// Expense totals are reported as money spent: stored expenses are negative,
// so the sum is negated once and refunds reduce the total. Other types are
// summed as stored. Category groups are ordered by total descending, date
// and month groups chronologically.
func (s *SQLiteStorage) Aggregate(ctx context.Context, query service.AggregateQuery) ([]service.AggregateRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateQuery(&query); err != nil {
		return nil, err
	}

	var keyExpr, orderBy string
	switch query.GroupBy {
	case service.GroupByCategory:
		keyExpr = "category"
		orderBy = "total DESC, group_key ASC"
	case service.GroupByDate:
		keyExpr = "date"
		orderBy = "group_key ASC"
	case service.GroupByMonth:
		keyExpr = "substr(date, 1, 7)"
		orderBy = "group_key ASC"
	}

	sumExpr := "SUM(amount)"
	if query.Type == model.TypeExpense {
		sumExpr = "-SUM(amount)"
	}

	where := "type = ?"
	args := []any{string(query.Type)}
	if query.From != nil {
		where += " AND date >= ?"
		args = append(args, query.From.String())
	}
	if query.To != nil {
		where += " AND date <= ?"
		args = append(args, query.To.String())
	}

	// #nosec G201 - only fixed fragments are interpolated
	sqlQuery := fmt.Sprintf(`
		SELECT %s AS group_key, %s AS total, COUNT(*)
		FROM transactions
		WHERE %s
		GROUP BY group_key
		ORDER BY %s
	`, keyExpr, sumExpr, where, orderBy)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []service.AggregateRow
	for rows.Next() {
		var row service.AggregateRow
		if err := rows.Scan(&row.Key, &row.Total, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
