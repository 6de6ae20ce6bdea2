package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, from_wallet_id, to_wallet_id, amount, status, description, type, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.FromWalletID, t.ToWalletID, t.Amount,
		t.Status, t.Description, t.Type, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// List fetches transactions newest first, optionally filtered by wallet.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.WalletID != "" {
		conditions = append(conditions, fmt.Sprintf("(from_wallet_id = $%d OR to_wallet_id = $%d)", argIdx, argIdx))
		args = append(args, params.WalletID)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC, seq DESC`, transactionColumns, where)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, params.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.FromWalletID, &t.ToWalletID, &t.Amount,
		&t.Status, &t.Description, &t.Type, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
