package postgres

import (
	"context"
	"fmt"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.Transactor on top of a pgx pool.
type Transactor struct {
	pool         Pool
	accounts     *AccountRepo
	wallets      *WalletRepo
	transactions *TransactionRepo
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{
		pool:         pool,
		accounts:     NewAccountRepo(pool),
		wallets:      NewWalletRepo(pool),
		transactions: NewTransactionRepo(pool),
	}
}

// WithinTx runs fn inside one database transaction. Any error rolls back.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	dbTx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &ledgerTx{tx: dbTx, t: t}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return mapWriteError("commit transaction", err)
	}
	return nil
}

// ledgerTx binds the repositories' tx-scoped methods to one pgx.Tx.
type ledgerTx struct {
	tx pgx.Tx
	t  *Transactor
}

func (l *ledgerTx) CreateAccount(ctx context.Context, user *domain.User, wallet *domain.Wallet) error {
	return l.t.accounts.Create(ctx, l.tx, user, wallet)
}

func (l *ledgerTx) LockWallets(ctx context.Context, ids []string) (map[string]*domain.Wallet, error) {
	return l.t.wallets.GetForUpdate(ctx, l.tx, ids)
}

func (l *ledgerTx) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	return l.t.wallets.UpdateBalance(ctx, l.tx, walletID, balance)
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	return l.t.transactions.Create(ctx, l.tx, t)
}

func (l *ledgerTx) RebindWallet(ctx context.Context, userID uuid.UUID, oldID, newID string) error {
	return l.t.wallets.Rebind(ctx, l.tx, userID, oldID, newID)
}
