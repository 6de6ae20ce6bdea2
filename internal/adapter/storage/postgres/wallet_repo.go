package postgres

import (
	"context"
	"fmt"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository and the locked wallet writes
// used inside a unit of work.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// TotalBalance sums every wallet balance.
func (r *WalletRepo) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0)::BIGINT FROM wallets`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum wallet balances: %w", err)
	}
	return total, nil
}

// GetForUpdate locks the given wallets with pessimistic locking, in id order
// so concurrent transfers over the same pair cannot deadlock.
// This MUST be called within a transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, ids []string) (map[string]*domain.Wallet, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at
		FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}
	defer rows.Close()

	wallets := make(map[string]*domain.Wallet, len(ids))
	for rows.Next() {
		w := &domain.Wallet{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// UpdateBalance sets a wallet's balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID string, balance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update wallet balance %s: %w", walletID, ports.ErrWalletNotFound)
	}
	return nil
}

// Rebind renames a wallet and the owner's cached wallet pointer.
// Transaction rows keep the old id.
func (r *WalletRepo) Rebind(ctx context.Context, tx pgx.Tx, userID uuid.UUID, oldID, newID string) error {
	tag, err := tx.Exec(ctx, `UPDATE wallets SET id = $1, updated_at = NOW() WHERE id = $2`, newID, oldID)
	if err != nil {
		return mapWriteError("rebind wallet", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rebind wallet %s: %w", oldID, ports.ErrWalletNotFound)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET wallet_id = $1 WHERE id = $2`, newID, userID); err != nil {
		return mapWriteError("rebind user wallet pointer", err)
	}
	return nil
}
