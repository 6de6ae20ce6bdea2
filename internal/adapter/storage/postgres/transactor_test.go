package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_WithinTx_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	txn := domain.NewDeposit("wallet-aaaa1111", 50000, "Alice", now)
	txn.Status = domain.TransactionStatusCompleted

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets .+ FOR UPDATE").
		WithArgs([]string{"wallet-aaaa1111"}).
		WillReturnRows(pgxmock.NewRows(walletColumns()).
			AddRow("wallet-aaaa1111", uuid.New(), int64(0), now, now))
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(int64(50000), "wallet-aaaa1111").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.FromWalletID, txn.ToWalletID, txn.Amount,
			txn.Status, txn.Description, txn.Type, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = store.WithinTx(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		wallets, err := tx.LockWallets(ctx, []string{"wallet-aaaa1111"})
		if err != nil {
			return err
		}
		w := wallets["wallet-aaaa1111"]
		if err := tx.UpdateBalance(ctx, w.ID, w.Balance+txn.Amount); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, txn)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_WithinTx_RollbackOnInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	txn := domain.NewDeposit("wallet-aaaa1111", 50000, "Alice", time.Now().UTC())
	txn.Status = domain.TransactionStatusCompleted

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(int64(50000), "wallet-aaaa1111").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.WithinTx(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		if err := tx.UpdateBalance(ctx, "wallet-aaaa1111", 50000); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, txn)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_WithinTx_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = store.WithinTx(context.Background(), func(context.Context, ports.LedgerTx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
