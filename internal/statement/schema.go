package statement

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/money-vault/internal/model"
)

// headerSearchRows bounds how far down a sheet the header row may sit.
const headerSearchRows = 20

type field int

const (
	fieldDate field = iota
	fieldType
	fieldCategory
	fieldSubcategory
	fieldDescription
	fieldAmount
	fieldCurrency
	fieldAccount
	fieldMemo
)

// schema maps the header of one tabular export onto transaction fields.
type schema struct {
	columns      map[string]field
	format       Format
	required     []field
	dateLayouts  []string
	serialDates  bool // accept Excel serial day numbers
	currencyCell bool // rows carry their own currency
}

var bankSaladSchema = &schema{
	format: FormatBankSalad,
	columns: map[string]field{
		"날짜":   fieldDate,
		"타입":   fieldType,
		"대분류":  fieldCategory,
		"소분류":  fieldSubcategory,
		"내용":   fieldDescription,
		"금액":   fieldAmount,
		"화폐":   fieldCurrency,
		"결제수단": fieldAccount,
		"메모":   fieldMemo,
	},
	required:     []field{fieldDate, fieldType, fieldCategory, fieldDescription, fieldAmount},
	dateLayouts:  []string{"2006-01-02", "2006.01.02", "2006/01/02", "20060102"},
	serialDates:  true,
	currencyCell: true,
}

var bankCSVSchema = &schema{
	format: FormatBankCSV,
	columns: map[string]field{
		"date":        fieldDate,
		"description": fieldDescription,
		"type":        fieldType,
		"amount":      fieldAmount,
		"category":    fieldCategory,
		"subcategory": fieldSubcategory,
		"account":     fieldAccount,
	},
	required:    []field{fieldDate, fieldDescription, fieldType, fieldAmount},
	dateLayouts: []string{"2006-01-02", "01/02/2006", "2006/01/02", "20060102"},
}

// schemas in detection order.
var schemas = []*schema{bankSaladSchema, bankCSVSchema}

func schemaFor(f Format) *schema {
	for _, s := range schemas {
		if s.format == f {
			return s
		}
	}
	return nil
}

// matchHeader maps column positions when row is a header for s.
func (s *schema) matchHeader(row []string) (map[field]int, bool) {
	cols := make(map[field]int)
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		if f, ok := s.columns[key]; ok {
			if _, seen := cols[f]; !seen {
				cols[f] = i
			}
		}
	}
	for _, f := range s.required {
		if _, ok := cols[f]; !ok {
			return nil, false
		}
	}
	return cols, true
}

// location is a header row found in a table.
type location struct {
	schema *schema
	cols   map[field]int
	table  table
	header int
}

// locate finds the first table with a header row for one of the candidate
// schemas.
func locate(tables []table, candidates ...*schema) (location, bool) {
	for _, t := range tables {
		limit := min(len(t.rows), headerSearchRows)
		for i := 0; i < limit; i++ {
			for _, s := range candidates {
				if cols, ok := s.matchHeader(t.rows[i]); ok {
					return location{schema: s, cols: cols, table: t, header: i}, true
				}
			}
		}
	}
	return location{}, false
}

func (p *Parser) parseTabular(ctx context.Context, data []byte, name string, candidates ...*schema) (*Result, error) {
	tables, err := readTables(data, name)
	if err != nil {
		return nil, err
	}
	loc, ok := locate(tables, candidates...)
	if !ok {
		return nil, fmt.Errorf("%w: no known header in %s", ErrUnrecognizedFormat, name)
	}

	result := &Result{Format: loc.schema.format}
	for i := loc.header + 1; i < len(loc.table.rows); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rowNum := i + 1
		if reason, bad := loc.table.broken[i]; bad {
			result.Warnings = append(result.Warnings, Warning{Row: rowNum, Reason: reason})
			continue
		}
		row := loc.table.rows[i]
		if isBlank(row) {
			continue
		}

		txn, err := p.convertRow(loc.schema, loc.cols, row)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Row: rowNum, Reason: err.Error()})
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

func (p *Parser) convertRow(s *schema, cols map[field]int, row []string) (model.Transaction, error) {
	cell := func(f field) string {
		i, ok := cols[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	if s.currencyCell {
		if cur := cell(fieldCurrency); cur != "" && !strings.EqualFold(cur, p.currency.Code) {
			return model.Transaction{}, fmt.Errorf("currency %s does not match ledger currency %s", cur, p.currency.Code)
		}
	}

	date, err := parseDate(cell(fieldDate), s.dateLayouts, s.serialDates)
	if err != nil {
		return model.Transaction{}, err
	}

	amount, err := parseAmount(cell(fieldAmount), p.currency.Fraction)
	if err != nil {
		return model.Transaction{}, err
	}

	signed, txType, err := applySign(cell(fieldType), amount)
	if err != nil {
		return model.Transaction{}, err
	}

	description := collapseSpace(cell(fieldDescription))
	if description == "" {
		description = collapseSpace(cell(fieldMemo))
	}

	return model.Transaction{
		Date:          date,
		Amount:        signed,
		Type:          txType,
		Category:      model.NormalizeCategory(cell(fieldCategory)),
		Subcategory:   model.NormalizeCategory(cell(fieldSubcategory)),
		Description:   description,
		SourceAccount: collapseSpace(cell(fieldAccount)),
	}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
