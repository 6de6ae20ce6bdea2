// Package memory is the in-process storage backend. It offers the same
// atomicity as the Postgres backend: per-wallet locks taken in sorted order
// and writes staged until commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/money"

	"github.com/google/uuid"
)

// Store implements ports.Store in memory.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*domain.User
	wallets      map[string]*domain.Wallet
	byEmail      map[string]uuid.UUID
	byRef        map[string]uuid.UUID
	transactions []domain.Transaction // insertion order
	deliveries   []domain.WebhookDeliveryLog
	audit        []domain.AuditLog

	locks walletLocks
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*domain.User),
		wallets: make(map[string]*domain.Wallet),
		byEmail: make(map[string]uuid.UUID),
		byRef:   make(map[string]uuid.UUID),
		locks:   walletLocks{m: make(map[string]*sync.Mutex)},
	}
}

func (s *Store) Accounts() ports.AccountRepository         { return accountRepo{s} }
func (s *Store) Wallets() ports.WalletRepository           { return walletRepo{s} }
func (s *Store) Transactions() ports.TransactionRepository { return transactionRepo{s} }
func (s *Store) Deliveries() ports.DeliveryLogRepository   { return deliveryRepo{s} }
func (s *Store) Audit() ports.AuditRepository              { return auditRepo{s} }

// accountLocked builds the read model. Caller holds s.mu.
func (s *Store) accountLocked(u *domain.User) *domain.Account {
	w, ok := s.wallets[u.WalletID]
	if !ok {
		return nil
	}
	return domain.NewAccount(u, w)
}

// walletLocks hands out one mutex per wallet id.
type walletLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *walletLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	return m
}

// --- Accounts ---

type accountRepo struct{ s *Store }

func (r accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return r.s.accountLocked(u), nil
}

func (r accountRepo) GetByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return nil, nil
	}
	u, ok := r.s.users[w.UserID]
	if !ok {
		return nil, nil
	}
	return domain.NewAccount(u, w), nil
}

func (r accountRepo) GetByExternalRef(ctx context.Context, ref string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byRef[ref]
	if !ok {
		return nil, nil
	}
	return r.s.accountLocked(r.s.users[id]), nil
}

func (r accountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return r.s.accountLocked(r.s.users[id]), nil
}

func (r accountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.s.users))
	for _, u := range r.s.users {
		if a := r.s.accountLocked(u); a != nil {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- Wallets ---

type walletRepo struct{ s *Store }

func (r walletRepo) TotalBalance(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	balances := make([]int64, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		balances = append(balances, w.Balance)
	}
	return money.Sum(balances...)
}

// --- Transactions ---

type transactionRepo struct{ s *Store }

func (r transactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.transactions {
		if r.s.transactions[i].ID == id {
			t := r.s.transactions[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r transactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(r.s.transactions))
	// Walk backwards so equal timestamps keep newest-inserted first.
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		t := r.s.transactions[i]
		if params.WalletID != "" && !t.Involves(params.WalletID) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

// --- Delivery log ---

type deliveryRepo struct{ s *Store }

func (r deliveryRepo) Create(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deliveries = append(r.s.deliveries, *log)
	return nil
}

func (r deliveryRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.WebhookDeliveryLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.WebhookDeliveryLog
	for _, l := range r.s.deliveries {
		if l.TransactionID == transactionID {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- Audit ---

type auditRepo struct{ s *Store }

func (r auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}
