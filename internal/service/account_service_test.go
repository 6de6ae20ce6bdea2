package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"mockbank/internal/adapter/storage/memory"
	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/internal/core/ports/mocks"
	"mockbank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// ==================== CreateAccount ====================

func TestAccountService_CreateAccount(t *testing.T) {
	f := newLedgerFixture(t)

	acc, err := f.accounts.CreateAccount(context.Background(), " Alice ", "Alice@X.com ")
	require.NoError(t, err)

	assert.Equal(t, "Alice", acc.Name)
	assert.Equal(t, "alice@x.com", acc.Email)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Regexp(t, `^PK93 ABPA \d{4} \d{4} \d{4}$`, acc.ExternalRef)
	assert.Regexp(t, `^wallet-[0-9a-f]{8}$`, acc.WalletID)
	assert.Equal(t, acc.ExternalRef, domain.NormalizeRef(domain.CompactRef(acc.ExternalRef)))

	stored, err := f.accounts.FindByInternalID(context.Background(), acc.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, acc, stored)
}

func TestAccountService_CreateAccount_URIWalletIDs(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, domain.NewRefGenerator("PK93", "ABPA"),
		URIWalletIDs("https://wallet.mockbank.dev/"), 3, newTestLogger())

	acc, err := svc.CreateAccount(context.Background(), "Alice", "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://wallet.mockbank.dev/"+domain.CompactRef(acc.ExternalRef), acc.WalletID)

	byWallet, err := svc.Resolve(context.Background(), acc.WalletID)
	require.NoError(t, err)
	require.NotNil(t, byWallet)
	assert.Equal(t, acc.UserID, byWallet.UserID)
}

func TestAccountService_CreateAccount_DuplicateEmail(t *testing.T) {
	f := newLedgerFixture(t)
	f.mustCreate(t, "Alice", "alice@x.com")

	_, err := f.accounts.CreateAccount(context.Background(), "Other Alice", "ALICE@x.com")
	assertAppError(t, err, "ACC_002")
	assertKind(t, err, apperror.KindDuplicateEmail)
}

func TestAccountService_CreateAccount_Validation(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.accounts.CreateAccount(context.Background(), "  ", "a@x.com")
	assertKind(t, err, apperror.KindValidation)
	_, err = f.accounts.CreateAccount(context.Background(), "A", "")
	assertKind(t, err, apperror.KindValidation)
}

type createMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	accounts *mocks.MockAccountRepository
	svc      *AccountServiceImpl
}

func setupCreateMocks(t *testing.T, attempts int) *createMocks {
	ctrl := gomock.NewController(t)
	m := &createMocks{
		ctrl:     ctrl,
		store:    mocks.NewMockStore(ctrl),
		accounts: mocks.NewMockAccountRepository(ctrl),
	}
	m.svc = NewAccountService(m.store, domain.NewRefGenerator("PK93", "ABPA"), RandomWalletIDs(), attempts, newTestLogger())
	m.store.EXPECT().Accounts().Return(m.accounts).AnyTimes()
	m.accounts.EXPECT().GetByEmail(gomock.Any(), "alice@x.com").Return(nil, nil)
	return m
}

func TestAccountService_CreateAccount_CollisionsExhaustAttempts(t *testing.T) {
	m := setupCreateMocks(t, 3)
	defer m.ctrl.Finish()

	seen := map[string]bool{}
	m.store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, ports.LedgerTx) error) error {
			tx := mocks.NewMockLedgerTx(m.ctrl)
			tx.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, u *domain.User, _ *domain.Wallet) error {
					seen[u.ExternalRef] = true
					return fmt.Errorf("insert user: %w", ports.ErrIdentifierTaken)
				},
			)
			return fn(ctx, tx)
		},
	).Times(3)

	result, err := m.svc.CreateAccount(context.Background(), "Alice", "alice@x.com")
	assert.Nil(t, result)
	assertAppError(t, err, "ACC_003")
	assert.Len(t, seen, 3, "a fresh reference is generated per attempt")
}

func TestAccountService_CreateAccount_RetrySucceeds(t *testing.T) {
	m := setupCreateMocks(t, 3)
	defer m.ctrl.Finish()

	gomock.InOrder(
		m.store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(ports.ErrIdentifierTaken),
		m.store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(nil),
	)

	result, err := m.svc.CreateAccount(context.Background(), "Alice", "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", result.Email)
}

func TestAccountService_CreateAccount_EmailRace(t *testing.T) {
	m := setupCreateMocks(t, 3)
	defer m.ctrl.Finish()

	m.store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(fmt.Errorf("commit: %w", ports.ErrEmailTaken))

	_, err := m.svc.CreateAccount(context.Background(), "Alice", "alice@x.com")
	assertAppError(t, err, "ACC_002")
}

func TestAccountService_CreateAccount_StorageFailure(t *testing.T) {
	m := setupCreateMocks(t, 3)
	defer m.ctrl.Finish()

	m.store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection refused"))

	_, err := m.svc.CreateAccount(context.Background(), "Alice", "alice@x.com")
	assertKind(t, err, apperror.KindStorageFailure)
}

// ==================== Lookups ====================

func TestAccountService_FindByExternalRef_Normalises(t *testing.T) {
	f := newLedgerFixture(t)
	alice := f.mustCreate(t, "Alice", "alice@x.com")
	compact := domain.CompactRef(alice.ExternalRef)

	for _, ref := range []string{
		alice.ExternalRef,
		compact,
		strings.ToLower(compact),
		" " + compact[:6] + "  " + compact[6:] + "\t",
	} {
		acc, err := f.accounts.FindByExternalRef(context.Background(), ref)
		require.NoError(t, err)
		require.NotNil(t, acc, "ref %q", ref)
		assert.Equal(t, alice.UserID, acc.UserID)
	}
}

func TestAccountService_Lookups_NotFound(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	acc, err := f.accounts.FindByInternalID(ctx, "not-a-uuid")
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = f.accounts.FindByInternalID(ctx, uuid.NewString())
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = f.accounts.FindByWalletID(ctx, "wallet-nope")
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = f.accounts.FindByExternalRef(ctx, "PK93 ABPA 0000 0000 0001")
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = f.accounts.Resolve(ctx, "https://bank.example.com/accounts/unknown")
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = f.accounts.Resolve(ctx, "   ")
	assert.NoError(t, err)
	assert.Nil(t, acc)
}

func TestAccountService_Resolve(t *testing.T) {
	f := newLedgerFixture(t)
	alice := f.mustCreate(t, "Alice", "alice@x.com")
	compact := domain.CompactRef(alice.ExternalRef)

	for _, ref := range []string{
		alice.ExternalRef,
		compact,
		alice.WalletID,
		"https://bank.example.com/iban/" + compact,
		"mockbank://accounts/" + compact + "/",
		"https://wallets.example.com/" + alice.WalletID,
	} {
		acc, err := f.accounts.Resolve(context.Background(), ref)
		require.NoError(t, err)
		require.NotNil(t, acc, "ref %q", ref)
		assert.Equal(t, alice.UserID, acc.UserID)
	}
}

func TestAccountService_Resolve_WalletIDShapedLikeReference(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	alice := f.mustCreate(t, "Alice", "alice@x.com")
	bob := f.mustCreate(t, "Bob", "bob@x.com")

	_, err := f.accounts.RebindWalletID(ctx, bob.ExternalRef, "PK93ABPA999999999999")
	require.NoError(t, err)

	acc, err := f.accounts.Resolve(ctx, "PK93ABPA999999999999")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, bob.UserID, acc.UserID)

	f.mustDeposit(t, alice, "10")
	txn, err := f.ledger.Transfer(ctx, alice.ExternalRef, "PK93ABPA999999999999", decimal.RequireFromString("4"))
	require.NoError(t, err)
	assert.Equal(t, "PK93ABPA999999999999", txn.ToWalletID)
}

// ==================== RebindWalletID ====================

func TestAccountService_RebindWalletID(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	alice := f.mustCreate(t, "Alice", "alice@x.com")
	f.mustDeposit(t, alice, "12.34")

	acc, err := f.accounts.RebindWalletID(ctx, alice.ExternalRef, "wallet-migrated")
	require.NoError(t, err)
	assert.Equal(t, "wallet-migrated", acc.WalletID)
	assert.Equal(t, int64(1234), acc.Balance)

	byNew, err := f.accounts.FindByWalletID(ctx, "wallet-migrated")
	require.NoError(t, err)
	require.NotNil(t, byNew)
	assert.Equal(t, alice.UserID, byNew.UserID)

	byOld, err := f.accounts.FindByWalletID(ctx, alice.WalletID)
	require.NoError(t, err)
	assert.Nil(t, byOld)

	// History stays under the old id.
	history, err := f.query.TransactionsForAccount(ctx, alice.UserID.String())
	require.NoError(t, err)
	assert.Empty(t, history)
	old, err := f.query.TransactionsForWallet(ctx, alice.WalletID)
	require.NoError(t, err)
	assert.Len(t, old, 1)

	// New activity lands on the new id.
	f.mustDeposit(t, alice, "1")
	history, err = f.query.TransactionsForAccount(ctx, alice.UserID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "wallet-migrated", history[0].ToWalletID)
}

func TestAccountService_RebindWalletID_Errors(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	alice := f.mustCreate(t, "Alice", "alice@x.com")
	bob := f.mustCreate(t, "Bob", "bob@x.com")

	_, err := f.accounts.RebindWalletID(ctx, "PK93 ABPA 9999 9999 9999", "wallet-new")
	assertKind(t, err, apperror.KindAccountNotFound)

	_, err = f.accounts.RebindWalletID(ctx, alice.ExternalRef, bob.WalletID)
	assertKind(t, err, apperror.KindDuplicateAccount)

	_, err = f.accounts.RebindWalletID(ctx, alice.ExternalRef, " ")
	assertKind(t, err, apperror.KindValidation)

	// Same id is a no-op.
	acc, err := f.accounts.RebindWalletID(ctx, alice.ExternalRef, alice.WalletID)
	require.NoError(t, err)
	assert.Equal(t, alice.WalletID, acc.WalletID)

	// A failed rebind leaves transfers working on the old id.
	f.mustDeposit(t, alice, "5")
	_, err = f.ledger.Transfer(ctx, alice.WalletID, bob.WalletID, decimal.NewFromInt(5))
	assert.NoError(t, err)
}
