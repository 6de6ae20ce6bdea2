package postgres

import (
	"context"
	"errors"
	"fmt"

	"mockbank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountSelect = `SELECT u.id, u.name, u.email, u.external_ref, w.id, w.balance, u.created_at
		FROM users u JOIN wallets w ON w.user_id = u.id`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a user and its wallet within a database transaction.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User, w *domain.Wallet) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO users (id, name, email, external_ref, wallet_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.ExternalRef, u.WalletID, u.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert user", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert wallet", err)
	}
	return nil
}

// GetByID fetches an account by user id.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.getOne(ctx, "get account by id", accountSelect+` WHERE u.id = $1`, id)
}

// GetByWalletID fetches an account by its wallet id.
func (r *AccountRepo) GetByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	return r.getOne(ctx, "get account by wallet id", accountSelect+` WHERE w.id = $1`, walletID)
}

// GetByExternalRef fetches an account by canonical external reference.
func (r *AccountRepo) GetByExternalRef(ctx context.Context, ref string) (*domain.Account, error) {
	return r.getOne(ctx, "get account by external ref", accountSelect+` WHERE u.external_ref = $1`, ref)
}

// GetByEmail fetches an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, "get account by email", accountSelect+` WHERE u.email = $1`, email)
}

// List returns every account, oldest first.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.pool.Query(ctx, accountSelect+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.UserID, &a.Name, &a.Email, &a.ExternalRef, &a.WalletID, &a.Balance, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
