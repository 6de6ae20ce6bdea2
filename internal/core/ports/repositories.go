package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"

	"mockbank/internal/core/domain"

	"github.com/google/uuid"
)

// Storage-level sentinel errors. Services translate these into apperror kinds.
var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrIdentifierTaken = errors.New("account identifier already in use")
	ErrWalletNotFound  = errors.New("wallet not found")
)

// --- Repository Ports (Driven Adapters) ---
//
// Read methods return (nil, nil) when the entity does not exist.

// AccountRepository reads the user+wallet read model.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByWalletID(ctx context.Context, walletID string) (*domain.Account, error)
	// GetByExternalRef expects the canonical spaced form.
	GetByExternalRef(ctx context.Context, ref string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

// WalletRepository exposes aggregate wallet reads.
type WalletRepository interface {
	TotalBalance(ctx context.Context) (int64, error)
}

// TransactionRepository reads committed transactions.
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// List returns transactions newest first.
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, error)
}

// TransactionListParams filters List. Zero values mean "no filter".
type TransactionListParams struct {
	WalletID string // source or destination
	Limit    int
}

// DeliveryLogRepository persists webhook delivery outcomes.
type DeliveryLogRepository interface {
	Create(ctx context.Context, log *domain.WebhookDeliveryLog) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.WebhookDeliveryLog, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// LedgerTx is the set of writes allowed inside one atomic unit of work.
// Nothing written through it is visible to other readers until commit.
type LedgerTx interface {
	CreateAccount(ctx context.Context, user *domain.User, wallet *domain.Wallet) error
	// LockWallets locks the wallets for the rest of the unit of work, in a
	// deterministic order. Unknown ids are absent from the result.
	LockWallets(ctx context.Context, ids []string) (map[string]*domain.Wallet, error)
	UpdateBalance(ctx context.Context, walletID string, balance int64) error
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	// RebindWallet renames a locked wallet and the owner's cached pointer.
	RebindWallet(ctx context.Context, userID uuid.UUID, oldID, newID string) error
}

// Transactor runs fn atomically. If fn returns an error every write made
// through tx is discarded.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// Store bundles one storage backend. Implementations are chosen at startup.
type Store interface {
	Transactor
	Accounts() AccountRepository
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Deliveries() DeliveryLogRepository
	Audit() AuditRepository
}

// SubscriberStore is the ordered set of webhook subscriber URLs.
type SubscriberStore interface {
	List(ctx context.Context) ([]string, error)
	// Add returns false if the URL was already present.
	Add(ctx context.Context, url string) (bool, error)
	// Remove returns false if the URL was not present.
	Remove(ctx context.Context, url string) (bool, error)
}
