package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mockbank/internal/adapter/storage/memory"
	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures enqueued transactions.
type recordingNotifier struct {
	mu   sync.Mutex
	txns []*domain.Transaction
}

func (n *recordingNotifier) Enqueue(t *domain.Transaction) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txns = append(n.txns, t)
	return true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.txns)
}

type ledgerFixture struct {
	store    ports.Store
	accounts *AccountServiceImpl
	ledger   *LedgerServiceImpl
	query    *QueryServiceImpl
	notifier *recordingNotifier
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	return newLedgerFixtureWithStore(t, memory.NewStore())
}

func newLedgerFixtureWithStore(t *testing.T, store ports.Store) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{store: store, notifier: &recordingNotifier{}}
	f.accounts = NewAccountService(store, domain.NewRefGenerator("PK93", "ABPA"), RandomWalletIDs(), 3, newTestLogger())
	f.ledger = NewLedgerService(store, f.accounts, f.notifier, newTestLogger())
	f.query = NewQueryService(store)
	return f
}

func (f *ledgerFixture) mustCreate(t *testing.T, name, email string) *domain.Account {
	t.Helper()
	acc, err := f.accounts.CreateAccount(context.Background(), name, email)
	require.NoError(t, err)
	return acc
}

func (f *ledgerFixture) mustDeposit(t *testing.T, acc *domain.Account, amount string) *domain.Account {
	t.Helper()
	updated, err := f.ledger.Deposit(context.Background(), acc.UserID.String(), decimal.RequireFromString(amount))
	require.NoError(t, err)
	return updated
}

func (f *ledgerFixture) balance(t *testing.T, acc *domain.Account) int64 {
	t.Helper()
	got, err := f.query.GetAccount(context.Background(), acc.UserID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Balance
}

func (f *ledgerFixture) total(t *testing.T) decimal.Decimal {
	t.Helper()
	total, err := f.query.TotalSystemBalance(context.Background())
	require.NoError(t, err)
	return total
}

// failingInsertStore wraps a real store and fails every transaction insert
// after the balance writes have been staged.
type failingInsertStore struct {
	*memory.Store
}

func (s failingInsertStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		return fn(ctx, failingInsertTx{tx})
	})
}

type failingInsertTx struct {
	ports.LedgerTx
}

func (failingInsertTx) InsertTransaction(context.Context, *domain.Transaction) error {
	return errors.New("disk full")
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "unexpected error: %v", err)
}
