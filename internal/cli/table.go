package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

// FormatAmount renders integer minor units in the given currency.
func FormatAmount(minor int64, currency string) string {
	if money.GetCurrency(currency) == nil {
		return strconv.FormatInt(minor, 10)
	}
	return money.New(minor, currency).Display()
}

// FormatSigned renders an amount colored by direction.
func FormatSigned(minor int64, currency string) string {
	s := FormatAmount(minor, currency)
	if minor < 0 {
		return OutflowStyle.Render(s)
	}
	return InflowStyle.Render(s)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Headers(headers...)
}

// RenderTransactions renders ledger entries as a table.
func RenderTransactions(txns []model.Transaction, currency string) string {
	t := newTable("Date", "Type", "Category", "Description", "Amount", "Account", "ID")
	for _, txn := range txns {
		category := txn.Category
		if txn.Subcategory != "" {
			category += "/" + txn.Subcategory
		}
		t.Row(
			txn.Date.String(),
			string(txn.Type),
			category,
			truncate(txn.Description, 40),
			FormatSigned(txn.Amount, currency),
			txn.SourceAccount,
			shortID(txn.Fingerprint),
		)
	}
	return t.Render()
}

// RenderAggregate renders grouped totals with each group's share.
func RenderAggregate(rows []service.AggregateRow, groupBy service.GroupBy, currency string) string {
	var total int64
	for _, r := range rows {
		total += r.Total
	}

	t := newTable(strings.ToUpper(string(groupBy[:1]))+string(groupBy[1:]), "Total", "Count", "Share")
	for _, r := range rows {
		key := r.Key
		if key == "" {
			key = "(none)"
		}
		share := "-"
		if total != 0 {
			share = fmt.Sprintf("%.1f%%", float64(r.Total)*100/float64(total))
		}
		t.Row(key, FormatAmount(r.Total, currency), strconv.Itoa(r.Count), share)
	}
	t.Row(BoldTotal("Total"), BoldTotal(FormatAmount(total, currency)), "", "")
	return t.Render()
}

// RenderHistory renders merge history records.
func RenderHistory(records []service.ImportRecord) string {
	t := newTable("Imported", "Source", "Accepted", "Duplicates", "Batch")
	for _, r := range records {
		t.Row(
			r.ImportedAt.Local().Format("2006-01-02 15:04"),
			r.Source,
			strconv.Itoa(r.Accepted),
			strconv.Itoa(r.Duplicates),
			shortID(r.BatchID),
		)
	}
	return t.Render()
}

// BoldTotal renders a summary cell.
func BoldTotal(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-1]) + "…"
}

// FormatCount describes how many of the ledger's rows are shown.
func FormatCount(shown, total int) string {
	return fmt.Sprintf("Showing %d of %d transactions", shown, total)
}
