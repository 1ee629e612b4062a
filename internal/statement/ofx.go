package statement

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/money-vault/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket at the end of a line.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// descriptionPrefixes are processor noise stripped from OFX names.
var descriptionPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parseOFX(ctx context.Context, data []byte) (*Result, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid OFX: %w", ErrUnrecognizedFormat, err)
	}

	result := &Result{Format: FormatOFX}
	entry := 0
	add := func(list *ofxgo.TransactionList, account string) error {
		if list == nil {
			return nil
		}
		for _, ofxTx := range list.Transactions {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry++
			txn, err := p.convertOFX(ofxTx, account)
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Row: entry, Reason: err.Error()})
				continue
			}
			result.Transactions = append(result.Transactions, txn)
		}
		return nil
	}

	var bankStmts, ccStmts int
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if err := add(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID)); err != nil {
				return nil, err
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if err := add(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID)); err != nil {
				return nil, err
			}
		}
	}

	slog.Debug("Read OFX statements",
		"bank_statements", bankStmts,
		"cc_statements", ccStmts,
		"entries", entry)

	return result, nil
}

// convertOFX maps one OFX entry. OFX amounts are already signed.
func (p *Parser) convertOFX(ofxTx ofxgo.Transaction, account string) (model.Transaction, error) {
	if ofxTx.DtPosted.IsZero() {
		return model.Transaction{}, fmt.Errorf("entry %s has no posted date", ofxTx.FiTID)
	}

	amount, err := parseAmount(ofxTx.TrnAmt.FloatString(8), p.currency.Fraction)
	if err != nil {
		return model.Transaction{}, err
	}

	txType := model.TypeFromAmount(amount)
	if ofxTx.TrnType == ofxgo.TrnTypeXfer {
		txType = model.TypeTransfer
	}

	var category string
	switch ofxTx.TrnType {
	case ofxgo.TrnTypeInt:
		category = "Interest"
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		category = "Bank Fees"
	case ofxgo.TrnTypeATM:
		category = "Cash & ATM"
	}

	return model.Transaction{
		Date:          civil.DateOf(ofxTx.DtPosted.Time),
		Amount:        amount,
		Type:          txType,
		Category:      category,
		Description:   ofxDescription(ofxTx),
		SourceAccount: account,
	}, nil
}

// ofxDescription picks the cleanest merchant text available.
func ofxDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return collapseSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " card posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = name[6:]
	}

	return collapseSpace(name)
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
