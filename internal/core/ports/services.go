package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"mockbank/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
}

// IdempotencyCache stores replayable responses keyed by client key.
// A key must be claimed before the operation runs; only the claimant may
// store the response or release the key.
type IdempotencyCache interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON, nil while in flight or absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// AccountService is the account directory.
type AccountService interface {
	CreateAccount(ctx context.Context, name, email string) (*domain.Account, error)
	FindByInternalID(ctx context.Context, id string) (*domain.Account, error)
	FindByWalletID(ctx context.Context, walletID string) (*domain.Account, error)
	FindByExternalRef(ctx context.Context, ref string) (*domain.Account, error)
	// Resolve maps any accepted account identifier to an account.
	Resolve(ctx context.Context, ref string) (*domain.Account, error)
	RebindWalletID(ctx context.Context, externalRef, newWalletID string) (*domain.Account, error)
}

// LedgerService performs balance-affecting operations.
type LedgerService interface {
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Account, error)
	Transfer(ctx context.Context, fromRef, toRef string, amount decimal.Decimal) (*domain.Transaction, error)
}

// QueryService is the read-only surface. Single lookups return (nil, nil)
// when nothing matches.
type QueryService interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByWalletID(ctx context.Context, walletID string) (*domain.Account, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	TransactionsForAccount(ctx context.Context, userID string) ([]domain.Transaction, error)
	TransactionsForWallet(ctx context.Context, walletID string) ([]domain.Transaction, error)
	TotalSystemBalance(ctx context.Context) (decimal.Decimal, error)
}

// TransactionNotifier accepts committed transactions for asynchronous
// notification. Enqueue never blocks.
type TransactionNotifier interface {
	Enqueue(t *domain.Transaction) bool
}

// WebhookService delivers transaction events and manages subscribers.
type WebhookService interface {
	TransactionNotifier
	Dispatch(ctx context.Context, t *domain.Transaction) bool
	Deliver(ctx context.Context, t *domain.Transaction) domain.DispatchReport
	AddSubscriberURL(ctx context.Context, url string) (bool, error)
	RemoveSubscriberURL(ctx context.Context, url string) (bool, error)
	SubscriberURLs(ctx context.Context) ([]string, error)
	SetEnabled(enabled bool)
	Settings() domain.WebhookSettings
	TriggerTestDelivery(ctx context.Context, sample *domain.Transaction) (domain.DispatchReport, error)
	DeliveryLog(ctx context.Context, transactionID string) ([]domain.WebhookDeliveryLog, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
