// Package statement turns exported statement files into normalized ledger
// transactions.
//
// Supported exports form a closed set of formats, each with an explicit
// column schema. Rows that cannot be converted are reported as warnings
// and never fail the whole file.
package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/Veraticus/money-vault/internal/model"
)

// ErrUnrecognizedFormat is returned when a file matches no known export
// schema or yields no usable rows.
var ErrUnrecognizedFormat = errors.New("unrecognized statement format")

// DefaultCurrency is the ledger currency used when none is configured.
const DefaultCurrency = "KRW"

// Format identifies a statement schema.
type Format string

// Known formats.
const (
	FormatAuto      Format = "auto"
	FormatBankSalad Format = "banksalad"
	FormatBankCSV   Format = "bankcsv"
	FormatOFX       Format = "ofx"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatBankSalad, FormatBankCSV, FormatOFX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, s)
}

// Warning describes a source row that was skipped.
type Warning struct {
	Reason string
	Row    int // 1-based row (or entry) number in the source
}

func (w Warning) String() string {
	return fmt.Sprintf("row %d: %s", w.Row, w.Reason)
}

// Result is the outcome of parsing one statement file.
type Result struct {
	Format       Format
	Transactions []model.Transaction
	Warnings     []Warning
}

// Parser converts statement files into transactions. It holds no mutable
// state and is safe for concurrent use.
type Parser struct {
	currency *money.Currency
}

// NewParser creates a parser for a ledger kept in the given ISO 4217
// currency. An empty or unknown code falls back to DefaultCurrency.
func NewParser(currencyCode string) *Parser {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	c := money.GetCurrency(code)
	if c == nil {
		if code != "" {
			slog.Warn("Unknown ledger currency, using default",
				"currency", currencyCode,
				"default", DefaultCurrency)
		}
		c = money.GetCurrency(DefaultCurrency)
	}
	return &Parser{currency: c}
}

// Currency returns the ledger currency code.
func (p *Parser) Currency() string {
	return p.currency.Code
}

// Parse converts data into transactions. With FormatAuto the schema is
// detected from the content; name is used only as a hint.
func (p *Parser) Parse(ctx context.Context, data []byte, name string, format Format) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		result *Result
		err    error
	)
	switch format {
	case FormatAuto, "":
		if looksLikeOFX(data, name) {
			result, err = p.parseOFX(ctx, data)
		} else {
			result, err = p.parseTabular(ctx, data, name, schemas...)
		}
	case FormatOFX:
		result, err = p.parseOFX(ctx, data)
	case FormatBankSalad, FormatBankCSV:
		result, err = p.parseTabular(ctx, data, name, schemaFor(format))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(result.Transactions) == 0 {
		return nil, fmt.Errorf("%w: no usable rows in %s (%d skipped)",
			ErrUnrecognizedFormat, name, len(result.Warnings))
	}

	slog.Info("Parsed statement",
		"file", name,
		"format", result.Format,
		"transactions", len(result.Transactions),
		"warnings", len(result.Warnings))

	return result, nil
}

// Detect reports which format data is in without converting any rows.
func Detect(data []byte, name string) (Format, error) {
	if looksLikeOFX(data, name) {
		return FormatOFX, nil
	}
	tables, err := readTables(data, name)
	if err != nil {
		return FormatAuto, err
	}
	loc, ok := locate(tables, schemas...)
	if !ok {
		return FormatAuto, ErrUnrecognizedFormat
	}
	return loc.schema.format, nil
}
