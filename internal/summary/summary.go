// Package summary renders a bounded text digest of the ledger for use as
// background context by an external assistant.
package summary

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"cloud.google.com/go/civil"
	"github.com/Rhymond/go-money"

	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Defaults applied when a Summarizer field is zero.
const (
	DefaultRecentCount   = 20
	DefaultMaxCategories = 15
	DefaultMaxBytes      = 8000
)

// Source is the read side of the ledger the digest is built from.
type Source interface {
	Load(ctx context.Context) ([]model.Transaction, error)
	Aggregate(ctx context.Context, query service.AggregateQuery) ([]service.AggregateRow, error)
}

// Summarizer formats data already computed by the ledger. It does not
// classify or interpret anything.
type Summarizer struct {
	Store         Source
	tmpl          *template.Template
	Currency      string
	RecentCount   int
	MaxCategories int
	MaxBytes      int
}

// New creates a Summarizer with default limits.
func New(store Source, currency string) (*Summarizer, error) {
	s := &Summarizer{
		Store:         store,
		Currency:      currency,
		RecentCount:   DefaultRecentCount,
		MaxCategories: DefaultMaxCategories,
		MaxBytes:      DefaultMaxBytes,
	}

	tmpl, err := template.New("context.tmpl").Funcs(template.FuncMap{
		"amount":   s.formatAmount,
		"category": formatCategory,
	}).ParseFS(templateFS, "templates/context.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse context template: %w", err)
	}
	s.tmpl = tmpl

	return s, nil
}

// digest is the template input.
type digest struct {
	First, Last   civil.Date
	Categories    []service.AggregateRow
	Recent        []model.Transaction
	Count         int
	HiddenCount   int
	Income        int64
	IncomeCount   int
	Spending      int64
	SpendingCount int
	HasTxns       bool
}

// Summarize renders the digest, truncated on a line boundary to MaxBytes.
func (s *Summarizer) Summarize(ctx context.Context) (string, error) {
	txns, err := s.Store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load ledger: %w", err)
	}

	d := digest{Count: len(txns), HasTxns: len(txns) > 0}
	if d.HasTxns {
		d.First = txns[0].Date
		d.Last = txns[len(txns)-1].Date
	}

	recent := s.RecentCount
	if recent <= 0 {
		recent = DefaultRecentCount
	}
	for i := len(txns) - 1; i >= 0 && len(d.Recent) < recent; i-- {
		d.Recent = append(d.Recent, txns[i])
	}

	categories, err := s.Store.Aggregate(ctx, service.AggregateQuery{
		GroupBy: service.GroupByCategory,
		Type:    model.TypeExpense,
	})
	if err != nil {
		return "", fmt.Errorf("failed to aggregate spending: %w", err)
	}
	for _, row := range categories {
		d.Spending += row.Total
		d.SpendingCount += row.Count
	}
	maxCategories := s.MaxCategories
	if maxCategories <= 0 {
		maxCategories = DefaultMaxCategories
	}
	if len(categories) > maxCategories {
		d.HiddenCount = len(categories) - maxCategories
		categories = categories[:maxCategories]
	}
	d.Categories = categories

	income, err := s.Store.Aggregate(ctx, service.AggregateQuery{
		GroupBy: service.GroupByCategory,
		Type:    model.TypeIncome,
	})
	if err != nil {
		return "", fmt.Errorf("failed to aggregate income: %w", err)
	}
	for _, row := range income {
		d.Income += row.Total
		d.IncomeCount += row.Count
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "context.tmpl", d); err != nil {
		return "", fmt.Errorf("failed to render context: %w", err)
	}

	maxBytes := s.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return truncateLines(buf.String(), maxBytes), nil
}

func (s *Summarizer) formatAmount(minor int64) string {
	code := s.Currency
	if code == "" || money.GetCurrency(code) == nil {
		code = money.KRW
	}
	return money.New(minor, code).Display()
}

func formatCategory(category, subcategory string) string {
	if category == "" {
		category = "(none)"
	}
	if subcategory == "" {
		return category
	}
	return category + "/" + subcategory
}

// truncateLines cuts s to at most limit bytes without splitting a line.
func truncateLines(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndexByte(s[:limit], '\n')
	if cut < 0 {
		return ""
	}
	return s[:cut+1]
}
