package statement

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/money-vault/internal/model"
)

var errEmptyAmount = errors.New("amount is empty")

var (
	outflowKinds  = map[string]bool{"withdrawal": true, "debit": true, "expense": true, "출금": true, "지출": true}
	inflowKinds   = map[string]bool{"deposit": true, "credit": true, "income": true, "입금": true, "수입": true}
	transferKinds = map[string]bool{"transfer": true, "이체": true}
)

// applySign applies the source's direction label to an amount. Outflows are
// always negative and inflows always positive regardless of how the source
// signed them. Transfers keep the source sign. Without a label the type is
// inferred from the sign.
func applySign(kind string, amount int64) (int64, model.TxType, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch {
	case k == "":
		return amount, model.TypeFromAmount(amount), nil
	case outflowKinds[k]:
		return -abs(amount), model.TypeExpense, nil
	case inflowKinds[k]:
		return abs(amount), model.TypeIncome, nil
	case transferKinds[k]:
		return amount, model.TypeTransfer, nil
	}
	return 0, "", fmt.Errorf("unknown transaction type %q", kind)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// amountPattern is the numeric core of an amount once currency affixes and
// signs are removed: digits with optional thousands separators, an optional
// fraction and an optional exponent as written by spreadsheets.
var amountPattern = regexp.MustCompile(`^(\d+|\d{1,3}(,\d{3})+)?(\.\d+)?([eE][+-]?\d+)?$`)

// Excel serial day numbers accepted as dates: 1900-01-01 through 9999-12-31.
const (
	minDateSerial = 1
	maxDateSerial = 2958465
)

// parseAmount converts amount text to integer minor units. It accepts
// thousands separators, currency symbols or codes before or after the
// number, one leading or trailing minus and accounting parentheses.
func parseAmount(raw string, fraction int) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errEmptyAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	core, signs, err := stripAffixes(s)
	if err != nil || signs > 1 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if signs == 1 {
		negative = !negative
	}
	if !amountPattern.MatchString(core) || !strings.ContainsAny(core, "0123456789") {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(core, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}

	minor := d.Shift(int32(fraction))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q is more precise than the ledger currency allows", raw)
	}
	// MinInt64 has no positive counterpart, so it cannot be re-signed.
	if !minor.BigInt().IsInt64() || minor.IntPart() == math.MinInt64 {
		return 0, fmt.Errorf("amount %q is out of range", raw)
	}
	return minor.IntPart(), nil
}

// stripAffixes removes currency symbols, codes, spaces and minus signs from
// both ends of s and returns the remaining core with the number of minus
// signs removed.
func stripAffixes(s string) (string, int, error) {
	runes := []rune(s)
	signs := 0

	isAffix := func(r rune) (bool, error) {
		switch {
		case r == '-' || r == '−':
			signs++
			return true, nil
		case r == '+' || unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.IsSymbol(r):
			return true, nil
		case unicode.IsDigit(r) || r == '.':
			return false, nil
		}
		return false, errors.New("unexpected character")
	}

	start := 0
	for start < len(runes) {
		affix, err := isAffix(runes[start])
		if err != nil {
			return "", 0, err
		}
		if !affix {
			break
		}
		start++
	}

	end := len(runes)
	for end > start {
		affix, err := isAffix(runes[end-1])
		if err != nil {
			return "", 0, err
		}
		if !affix {
			break
		}
		end--
	}

	return string(runes[start:end]), signs, nil
}

// parseDate parses a date cell using the given layouts. A time of day after
// the date is ignored. When serial is set, numbers that match no layout are
// read as Excel serial day numbers within the range Excel supports.
func parseDate(raw string, layouts []string, serial bool) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, errors.New("date is empty")
	}

	text := s
	if i := strings.IndexAny(text, " T"); i > 0 {
		text = text[:i]
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return civil.DateOf(t), nil
		}
	}

	if serial {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			if n < minDateSerial || n >= maxDateSerial+1 {
				return civil.Date{}, fmt.Errorf("date serial %q is out of range", raw)
			}
			t, err := excelize.ExcelDateToTime(n, false)
			if err != nil {
				return civil.Date{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
			}
			return civil.DateOf(t), nil
		}
	}

	return civil.Date{}, fmt.Errorf("invalid date %q", raw)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
