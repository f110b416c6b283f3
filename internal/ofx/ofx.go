// Package ofx reads OFX statement files into parsed accounts and
// transactions.
package ofx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// ErrInvalidDocument wraps every failure to read or decode a statement.
var ErrInvalidDocument = errors.New("invalid OFX document")

const (
	// AccountTypeCredit is reported for credit card statements, which carry
	// no ACCTTYPE of their own.
	AccountTypeCredit = "CREDIT"
	// AccountTypeInvestment is reported for the cash side of investment
	// statements.
	AccountTypeInvestment = "INVESTMENT"

	minAmountScale = 2
	maxAmountScale = 12
)

// Parse decodes a complete OFX document. A well-formed document without
// any statements yields zero accounts.
func Parse(r io.Reader) (*domain.ParsedDocument, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading content: %v", ErrInvalidDocument, err)
	}

	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	inst := domain.Institution{
		Org: strings.TrimSpace(resp.Signon.Org.String()),
		FID: strings.TrimSpace(resp.Signon.Fid.String()),
	}

	doc := &domain.ParsedDocument{}

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected bank message %T", ErrInvalidDocument, msg)
		}
		acc, err := parseBank(stmt, inst)
		if err != nil {
			return nil, err
		}
		doc.Accounts = append(doc.Accounts, *acc)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected credit card message %T", ErrInvalidDocument, msg)
		}
		acc, err := parseCreditCard(stmt, inst)
		if err != nil {
			return nil, err
		}
		doc.Accounts = append(doc.Accounts, *acc)
	}

	for _, msg := range resp.InvStmt {
		stmt, ok := msg.(*ofxgo.InvStatementResponse)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected investment message %T", ErrInvalidDocument, msg)
		}
		acc, err := parseInvestment(stmt, inst)
		if err != nil {
			return nil, err
		}
		doc.Accounts = append(doc.Accounts, *acc)
	}

	return doc, nil
}

func parseBank(stmt *ofxgo.StatementResponse, inst domain.Institution) (*domain.ParsedAccount, error) {
	acc := &domain.ParsedAccount{
		AccountID:   stmt.BankAcctFrom.AcctID.String(),
		AccountType: stmt.BankAcctFrom.AcctType.String(),
		Institution: inst,
	}
	if stmt.BankTranList == nil {
		return acc, nil
	}
	txs, err := parseTransactions(stmt.BankTranList.Transactions)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", acc.AccountID, err)
	}
	acc.Transactions = txs
	return acc, nil
}

func parseCreditCard(stmt *ofxgo.CCStatementResponse, inst domain.Institution) (*domain.ParsedAccount, error) {
	acc := &domain.ParsedAccount{
		AccountID:   stmt.CCAcctFrom.AcctID.String(),
		AccountType: AccountTypeCredit,
		Institution: inst,
	}
	if stmt.BankTranList == nil {
		return acc, nil
	}
	txs, err := parseTransactions(stmt.BankTranList.Transactions)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", acc.AccountID, err)
	}
	acc.Transactions = txs
	return acc, nil
}

// parseInvestment keeps only the cash movements of an investment account.
// Security trades have no place in the transaction model and are ignored.
func parseInvestment(stmt *ofxgo.InvStatementResponse, inst domain.Institution) (*domain.ParsedAccount, error) {
	acc := &domain.ParsedAccount{
		AccountID:   stmt.InvAcctFrom.AcctID.String(),
		AccountType: AccountTypeInvestment,
		Institution: inst,
	}
	if stmt.InvTranList == nil {
		return acc, nil
	}
	for _, bank := range stmt.InvTranList.BankTransactions {
		txs, err := parseTransactions(bank.Transactions)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.AccountID, err)
		}
		acc.Transactions = append(acc.Transactions, txs...)
	}
	return acc, nil
}

func parseTransactions(in []ofxgo.Transaction) ([]domain.ParsedTransaction, error) {
	out := make([]domain.ParsedTransaction, 0, len(in))
	for i, txn := range in {
		amount, err := exactAmount(&txn.TrnAmt.Rat)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %d (%s): %v", ErrInvalidDocument, i, txn.FiTID.String(), err)
		}

		payee := strings.TrimSpace(txn.Name.String())
		if payee == "" && txn.Payee != nil {
			payee = strings.TrimSpace(txn.Payee.Name.String())
		}

		out = append(out, domain.ParsedTransaction{
			Timestamp: txn.DtPosted.Time,
			Payee:     payee,
			Memo:      strings.TrimSpace(txn.Memo.String()),
			Amount:    amount,
			Type:      strings.ToLower(txn.TrnType.String()),
			FitID:     strings.TrimSpace(txn.FiTID.String()),
		})
	}
	return out, nil
}

// exactAmount converts a rational amount to a decimal without rounding,
// using at least two fractional digits.
func exactAmount(r *big.Rat) (decimal.Decimal, error) {
	for scale := minAmountScale; scale <= maxAmountScale; scale++ {
		d, err := decimal.NewFromString(r.FloatString(scale))
		if err != nil {
			return decimal.Decimal{}, err
		}
		if d.Rat().Cmp(r) == 0 {
			return d, nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("amount %s has more than %d decimal places", r.RatString(), maxAmountScale)
}
