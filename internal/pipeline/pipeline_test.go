package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/infra/inmemory"
	"github.com/dvloznov/reckless-spender/internal/ofx"
)

// mockStore wraps the in-memory backend and records or fails selected calls.
type mockStore struct {
	*inmemory.Store

	findCalls     [][]string
	existingCalls [][]string

	FindAccountsByNameFunc func(ctx context.Context, names []string) (map[string]*domain.Account, error)
	InsertAccountFunc      func(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error)
	ExistingFitIDsFunc     func(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error)
	InsertTransactionsFunc func(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error)
}

func newMockStore() *mockStore {
	return &mockStore{Store: inmemory.NewStore()}
}

func (m *mockStore) FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error) {
	m.findCalls = append(m.findCalls, append([]string(nil), names...))
	if m.FindAccountsByNameFunc != nil {
		return m.FindAccountsByNameFunc(ctx, names)
	}
	return m.Store.FindAccountsByName(ctx, names)
}

func (m *mockStore) InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
	if m.InsertAccountFunc != nil {
		return m.InsertAccountFunc(ctx, acc)
	}
	return m.Store.InsertAccount(ctx, acc)
}

func (m *mockStore) ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error) {
	m.existingCalls = append(m.existingCalls, append([]string(nil), accountIDs...))
	if m.ExistingFitIDsFunc != nil {
		return m.ExistingFitIDsFunc(ctx, accountIDs)
	}
	return m.Store.ExistingFitIDs(ctx, accountIDs)
}

func (m *mockStore) InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, txs)
	}
	return m.Store.InsertTransactions(ctx, txs)
}

// runDocument executes every step after parsing against doc.
func runDocument(t *testing.T, st *mockStore, doc *domain.ParsedDocument) *Result {
	t.Helper()
	state := &PipelineState{
		Filename: "test.ofx",
		Document: doc,
		Result:   &Result{Filename: "test.ofx"},
	}
	p := NewPipeline(
		&ReconcileAccountsStep{Accounts: st},
		&NormalizeStep{},
		&DedupStep{Transactions: st},
		&PersistStep{Transactions: st},
	)
	require.NoError(t, p.Execute(context.Background(), state))
	state.Result.Collected = state.Pending
	state.Result.New = state.New
	return state.Result
}

func parsedTx(fitID, memo, amount string) domain.ParsedTransaction {
	return domain.ParsedTransaction{
		Timestamp: time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC),
		Memo:      memo,
		Amount:    decimal.RequireFromString(amount),
		Type:      "debit",
		FitID:     fitID,
	}
}

func TestPipeline_UnknownInstitutionScenario(t *testing.T) {
	st := newMockStore()
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "123",
		AccountType:  "CHECKING",
		Transactions: []domain.ParsedTransaction{parsedTx("X1", "Coffee", "-42.50")},
	}}}

	res := runDocument(t, st, doc)

	require.Len(t, res.CreatedAccounts, 1)
	acc := res.CreatedAccounts[0]
	assert.Equal(t, "Unknown Institution - 123 (CHECKING)", acc.Name)
	assert.Nil(t, acc.Type, "upper-case type is not a member of the enum")

	require.Len(t, res.Persisted, 1)
	tx := res.Persisted[0]
	assert.Equal(t, acc.ID, tx.AccountID)
	assert.Equal(t, "Coffee", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("-42.50")))
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 10}, tx.Date)
	require.NotNil(t, tx.FitID)
	assert.Equal(t, "X1", *tx.FitID)
	assert.Nil(t, res.PersistErr)
}

func TestPipeline_ValidTypeIsStored(t *testing.T) {
	st := newMockStore()
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:   "77",
		AccountType: " savings ",
		Institution: domain.Institution{Org: "TESTBANK"},
	}}}

	res := runDocument(t, st, doc)

	require.Len(t, res.CreatedAccounts, 1)
	require.NotNil(t, res.CreatedAccounts[0].Type)
	assert.Equal(t, domain.AccountTypeSavings, *res.CreatedAccounts[0].Type)
	assert.Empty(t, res.Collected)
	assert.Empty(t, st.existingCalls, "nothing to deduplicate")
}

func TestPipeline_ExistingAccountIsReused(t *testing.T) {
	st := newMockStore()
	existing, err := st.Store.InsertAccount(context.Background(), &domain.AccountCreate{Name: "TESTBANK - 1 (CHECKING)"})
	require.NoError(t, err)

	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "1",
		AccountType:  "checking",
		Institution:  domain.Institution{Org: "TESTBANK"},
		Transactions: []domain.ParsedTransaction{parsedTx("A", "x", "1.00")},
	}}}

	res := runDocument(t, st, doc)

	assert.Empty(t, res.CreatedAccounts)
	require.Len(t, res.MatchedAccounts, 1)
	assert.Equal(t, existing.ID, res.MatchedAccounts[0].ID)
	require.Len(t, res.Persisted, 1)
	assert.Equal(t, existing.ID, res.Persisted[0].AccountID)
}

func TestPipeline_BatchedLookups(t *testing.T) {
	st := newMockStore()
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{
		{AccountID: "1", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1")}},
		{AccountID: "2", AccountType: "SAVINGS", Transactions: []domain.ParsedTransaction{parsedTx("b", "y", "2")}},
		{AccountID: "1", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("c", "z", "3")}},
	}}

	res := runDocument(t, st, doc)

	require.Len(t, st.findCalls, 1)
	assert.Equal(t, []string{
		"Unknown Institution - 1 (CHECKING)",
		"Unknown Institution - 2 (SAVINGS)",
	}, st.findCalls[0])

	require.Len(t, res.CreatedAccounts, 2, "same name shares one account")
	require.Len(t, st.existingCalls, 1)
	assert.ElementsMatch(t, []string{res.CreatedAccounts[0].ID, res.CreatedAccounts[1].ID}, st.existingCalls[0])
	assert.Len(t, res.Persisted, 3)
}

func TestPipeline_AccountInsertFailureSkipsAccount(t *testing.T) {
	st := newMockStore()
	st.InsertAccountFunc = func(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
		if acc.Name == "Unknown Institution - bad (CHECKING)" {
			return nil, errors.New("rejected")
		}
		return st.Store.InsertAccount(ctx, acc)
	}
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{
		{AccountID: "bad", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1")}},
		{AccountID: "good", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("b", "y", "2")}},
	}}

	res := runDocument(t, st, doc)

	assert.Equal(t, []string{"Unknown Institution - bad (CHECKING)"}, res.SkippedAccounts)
	require.Len(t, res.CreatedAccounts, 1)
	require.Len(t, res.Collected, 1, "skipped account contributes no transactions")
	assert.Equal(t, res.CreatedAccounts[0].ID, res.Collected[0].AccountID)
	assert.Len(t, res.Persisted, 1)
}

func TestPipeline_AccountInsertWithoutRowSkipsAccount(t *testing.T) {
	st := newMockStore()
	st.InsertAccountFunc = func(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
		if acc.Name == "Unknown Institution - ghost (CHECKING)" {
			return nil, nil
		}
		return st.Store.InsertAccount(ctx, acc)
	}
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{
		{AccountID: "ghost", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1")}},
		{AccountID: "good", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("b", "y", "2")}},
		{AccountID: "ghost", AccountType: "CHECKING", Transactions: []domain.ParsedTransaction{parsedTx("c", "z", "3")}},
	}}

	res := runDocument(t, st, doc)

	assert.Equal(t, []string{"Unknown Institution - ghost (CHECKING)"}, res.SkippedAccounts)
	require.Len(t, res.CreatedAccounts, 1)
	require.Len(t, res.Collected, 1)
	assert.Equal(t, res.CreatedAccounts[0].ID, res.Collected[0].AccountID)
	assert.Len(t, res.Persisted, 1)
}

func TestPipeline_LookupFailureAbortsImport(t *testing.T) {
	st := newMockStore()
	st.FindAccountsByNameFunc = func(ctx context.Context, names []string) (map[string]*domain.Account, error) {
		return nil, errors.New("store unavailable")
	}
	state := &PipelineState{
		Document: &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{AccountID: "1"}}},
		Result:   &Result{},
	}

	err := NewPipeline(&ReconcileAccountsStep{Accounts: st}).Execute(context.Background(), state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestPipeline_PersistFailureIsReported(t *testing.T) {
	st := newMockStore()
	st.InsertTransactionsFunc = func(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
		return nil, errors.New("quota exceeded")
	}
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "1",
		AccountType:  "CHECKING",
		Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1"), parsedTx("b", "y", "2")},
	}}}

	res := runDocument(t, st, doc)

	require.Error(t, res.PersistErr)
	assert.True(t, res.Partial())
	assert.Len(t, res.Collected, 2)
	assert.Empty(t, res.Persisted)

	sum := res.Summary()
	assert.Equal(t, 2, sum.TransactionsCollected)
	assert.Equal(t, 0, sum.TransactionsPersisted)
	assert.Equal(t, messagePartial, sum.Message)
	assert.Equal(t, persistFailure, sum.PersistError)
	assert.NotContains(t, sum.PersistError, "quota")
}

func TestPipeline_ShortInsertIsReported(t *testing.T) {
	st := newMockStore()
	st.InsertTransactionsFunc = func(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
		stored, err := st.Store.InsertTransactions(ctx, txs[:1])
		return stored, err
	}
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "1",
		AccountType:  "CHECKING",
		Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1"), parsedTx("b", "y", "2")},
	}}}

	res := runDocument(t, st, doc)

	assert.ErrorIs(t, res.PersistErr, ErrShortInsert)
	assert.Len(t, res.Persisted, 1)
}

func TestPipeline_AllDuplicatesSkipsPersist(t *testing.T) {
	st := newMockStore()
	insertCalls := 0
	st.InsertTransactionsFunc = func(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
		insertCalls++
		return st.Store.InsertTransactions(ctx, txs)
	}
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "1",
		AccountType:  "CHECKING",
		Transactions: []domain.ParsedTransaction{parsedTx("a", "x", "1")},
	}}}

	first := runDocument(t, st, doc)
	require.Len(t, first.Persisted, 1)

	second := runDocument(t, st, doc)

	assert.Equal(t, 1, insertCalls, "empty batch is not sent to the store")
	assert.Empty(t, second.CreatedAccounts)
	assert.Len(t, second.MatchedAccounts, 1)
	assert.Len(t, second.Collected, 1)
	assert.Empty(t, second.New)
	assert.Equal(t, 1, second.DuplicatesSkipped)
	assert.Nil(t, second.PersistErr)
	assert.False(t, second.Partial())
}

func TestPipeline_TransactionsWithoutFitIDAlwaysInserted(t *testing.T) {
	st := newMockStore()
	doc := &domain.ParsedDocument{Accounts: []domain.ParsedAccount{{
		AccountID:    "1",
		AccountType:  "CHECKING",
		Transactions: []domain.ParsedTransaction{parsedTx("", "cash", "-10")},
	}}}

	runDocument(t, st, doc)
	res := runDocument(t, st, doc)

	assert.Len(t, res.Persisted, 1)
	all, err := st.ListTransactions(context.Background(), domain.NewTransactionFilter())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

const importFixture = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240101120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>12345
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9876543210
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000
<DTEND>20240131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000
<TRNAMT>-50.00
<FITID>TXN001
<NAME>Coffee Shop
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240115120000
<TRNAMT>1000.00
<FITID>TXN002
<NAME>Paycheck
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20240131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImporter_ReimportIsIdempotent(t *testing.T) {
	st := newMockStore()
	im := NewImporter(st, st, zerolog.Nop())
	ctx := context.Background()

	first, err := im.Import(ctx, "jan.ofx", []byte(importFixture))
	require.NoError(t, err)
	sum := first.Summary()
	assert.Equal(t, "jan.ofx", sum.Filename)
	assert.Equal(t, messageSuccess, sum.Message)
	assert.Equal(t, 1, sum.AccountsProcessed)
	assert.Equal(t, 2, sum.TransactionsCollected)
	assert.Equal(t, 2, sum.TransactionsPersisted)
	assert.Equal(t, "TESTBANK - 9876543210 (CHECKING)", first.CreatedAccounts[0].Name)

	second, err := im.Import(ctx, "jan.ofx", []byte(importFixture))
	require.NoError(t, err)
	sum = second.Summary()
	assert.Equal(t, 0, sum.AccountsProcessed)
	assert.Equal(t, 1, sum.AccountsMatched)
	assert.Equal(t, 2, sum.TransactionsCollected)
	assert.Equal(t, 0, sum.TransactionsNew)
	assert.Equal(t, 2, sum.DuplicatesSkipped)

	all, err := st.ListTransactions(ctx, domain.NewTransactionFilter())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImporter_BracketedTimezoneUsesUTCDate(t *testing.T) {
	st := newMockStore()
	im := NewImporter(st, st, zerolog.Nop())
	content := strings.Replace(importFixture, "<DTPOSTED>20240105120000", "<DTPOSTED>20240105200000[-5:EST]", 1)

	res, err := im.Import(context.Background(), "tz.ofx", []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Persisted, 2)

	byFitID := make(map[string]civil.Date)
	for _, tx := range res.Persisted {
		byFitID[*tx.FitID] = tx.Date
	}
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 6}, byFitID["TXN001"])
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 15}, byFitID["TXN002"])
}

func TestImporter_ParseFailure(t *testing.T) {
	st := newMockStore()
	im := NewImporter(st, st, zerolog.Nop())

	_, err := im.Import(context.Background(), "broken.ofx", []byte("not an ofx file"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ofx.ErrInvalidDocument)
	assert.Empty(t, st.findCalls, "nothing is looked up after a parse failure")
}

func TestParseFailure(t *testing.T) {
	st := newMockStore()
	im := NewImporter(st, st, zerolog.Nop())

	_, err := im.Import(context.Background(), "broken.ofx", []byte("not an ofx file"))
	msg, ok := ParseFailure(err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, ofx.ErrInvalidDocument.Error()), msg)
	assert.NotContains(t, msg, "pipeline step")

	_, ok = ParseFailure(errors.New("connection reset"))
	assert.False(t, ok)
}
