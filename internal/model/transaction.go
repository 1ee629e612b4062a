// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// TxType classifies the direction of money movement.
type TxType string

// Transaction type constants.
const (
	TypeExpense  TxType = "expense"
	TypeIncome   TxType = "income"
	TypeTransfer TxType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	}
	return false
}

// TypeFromAmount infers a transaction type from the sign of a signed amount.
func TypeFromAmount(amount int64) TxType {
	if amount < 0 {
		return TypeExpense
	}
	return TypeIncome
}

// ParseTxType parses a stored or user-supplied type name.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// Transaction is a single normalized ledger entry.
//
// Amount is expressed in integer minor units of the ledger currency.
// Negative amounts are outflows, positive amounts are inflows.
type Transaction struct {
	Date          civil.Date
	Type          TxType
	Category      string
	Subcategory   string
	Description   string
	SourceAccount string // Account or payment instrument the row came from
	Fingerprint   string // Set when loaded from the ledger
	Amount        int64
}

// ComputeFingerprint derives the deduplication key from the identity fields.
// Category and subcategory are deliberately excluded.
func (t *Transaction) ComputeFingerprint() string {
	return Fingerprint(t.Date, t.Amount, t.Description, t.SourceAccount)
}

// Fingerprint hashes the identity fields of a transaction. Each field is
// length-prefixed so that adjacent fields cannot bleed into one another.
func Fingerprint(date civil.Date, amount int64, description, sourceAccount string) string {
	var b strings.Builder
	for _, field := range []string{
		date.String(),
		strconv.FormatInt(amount, 10),
		description,
		sourceAccount,
	} {
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
		b.WriteByte('|')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// placeholderCategories are category values that mean "no category".
var placeholderCategories = map[string]bool{
	"":              true,
	"-":             true,
	"미분류":           true,
	"uncategorized": true,
	"n/a":           true,
	"none":          true,
	"null":          true,
	"nan":           true,
}

// NormalizeCategory collapses whitespace and maps placeholders to "".
func NormalizeCategory(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if placeholderCategories[strings.ToLower(s)] {
		return ""
	}
	return s
}

// MergeResult reports the outcome of merging a batch into the ledger.
type MergeResult struct {
	BatchID    string
	Accepted   int
	Duplicates int
}
