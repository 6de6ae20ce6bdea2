package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/google/uuid"
)

var (
	errNotLocked       = errors.New("wallet not locked in this unit of work")
	errNegativeBalance = errors.New("wallet balance cannot be negative")
	errNonPositive     = errors.New("transaction amount must be positive")
)

type newAccount struct {
	user   domain.User
	wallet domain.Wallet
}

type rebind struct {
	userID       uuid.UUID
	oldID, newID string
}

// ledgerTx stages writes until commit. Locks are released by WithinTx.
type ledgerTx struct {
	s        *Store
	held     []*sync.Mutex
	locked   map[string]bool
	balances map[string]int64
	accounts []newAccount
	rebinds  []rebind
	txns     []domain.Transaction
}

// WithinTx runs fn as one atomic unit. Nothing is applied unless fn returns nil
// and every staged write still satisfies the store's uniqueness rules.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	tx := &ledgerTx{
		s:        s,
		locked:   make(map[string]bool),
		balances: make(map[string]int64),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *ledgerTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

func (tx *ledgerTx) CreateAccount(ctx context.Context, user *domain.User, wallet *domain.Wallet) error {
	tx.s.mu.RLock()
	err := tx.s.checkAccountLocked(user, wallet)
	tx.s.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, a := range tx.accounts {
		if a.user.Email == user.Email {
			return ports.ErrEmailTaken
		}
		if a.user.ExternalRef == user.ExternalRef || a.wallet.ID == wallet.ID {
			return ports.ErrIdentifierTaken
		}
	}
	tx.accounts = append(tx.accounts, newAccount{user: *user, wallet: *wallet})
	return nil
}

func (tx *ledgerTx) LockWallets(ctx context.Context, ids []string) (map[string]*domain.Wallet, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	for i, id := range sorted {
		if tx.locked[id] || (i > 0 && sorted[i-1] == id) {
			continue
		}
		m := tx.s.locks.get(id)
		m.Lock()
		tx.held = append(tx.held, m)
		tx.locked[id] = true
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	out := make(map[string]*domain.Wallet, len(sorted))
	for _, id := range sorted {
		w, ok := tx.s.wallets[id]
		if !ok {
			continue
		}
		cp := *w
		if b, staged := tx.balances[id]; staged {
			cp.Balance = b
		}
		out[id] = &cp
	}
	return out, nil
}

func (tx *ledgerTx) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	if !tx.locked[walletID] {
		return fmt.Errorf("%s: %w", walletID, errNotLocked)
	}
	if balance < 0 {
		return fmt.Errorf("%s: %w", walletID, errNegativeBalance)
	}
	tx.balances[walletID] = balance
	return nil
}

func (tx *ledgerTx) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.Amount <= 0 {
		return errNonPositive
	}
	tx.txns = append(tx.txns, *t)
	return nil
}

func (tx *ledgerTx) RebindWallet(ctx context.Context, userID uuid.UUID, oldID, newID string) error {
	if !tx.locked[oldID] {
		return fmt.Errorf("%s: %w", oldID, errNotLocked)
	}
	tx.s.mu.RLock()
	_, taken := tx.s.wallets[newID]
	tx.s.mu.RUnlock()
	if taken {
		return ports.ErrIdentifierTaken
	}
	tx.rebinds = append(tx.rebinds, rebind{userID: userID, oldID: oldID, newID: newID})
	return nil
}

func (tx *ledgerTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything first so a failure leaves the store untouched.
	for i := range tx.accounts {
		if err := s.checkAccountLocked(&tx.accounts[i].user, &tx.accounts[i].wallet); err != nil {
			return err
		}
	}
	created := make(map[string]bool, len(tx.accounts))
	for i := range tx.accounts {
		created[tx.accounts[i].wallet.ID] = true
	}
	for id := range tx.balances {
		if _, ok := s.wallets[id]; !ok && !created[id] {
			return fmt.Errorf("%s: %w", id, ports.ErrWalletNotFound)
		}
	}
	for _, rb := range tx.rebinds {
		if _, ok := s.wallets[rb.oldID]; !ok {
			return fmt.Errorf("%s: %w", rb.oldID, ports.ErrWalletNotFound)
		}
		if _, taken := s.wallets[rb.newID]; taken {
			return ports.ErrIdentifierTaken
		}
	}

	now := time.Now().UTC()
	for i := range tx.accounts {
		u, w := tx.accounts[i].user, tx.accounts[i].wallet
		s.users[u.ID] = &u
		s.wallets[w.ID] = &w
		s.byEmail[u.Email] = u.ID
		s.byRef[u.ExternalRef] = u.ID
	}
	for id, b := range tx.balances {
		s.wallets[id].Balance = b
		s.wallets[id].UpdatedAt = now
	}
	for _, rb := range tx.rebinds {
		w := s.wallets[rb.oldID]
		delete(s.wallets, rb.oldID)
		w.ID = rb.newID
		w.UpdatedAt = now
		s.wallets[rb.newID] = w
		if u, ok := s.users[rb.userID]; ok {
			u.WalletID = rb.newID
		}
	}
	s.transactions = append(s.transactions, tx.txns...)
	return nil
}

// checkAccountLocked enforces the unique columns. Caller holds s.mu.
func (s *Store) checkAccountLocked(u *domain.User, w *domain.Wallet) error {
	if _, ok := s.byEmail[u.Email]; ok {
		return ports.ErrEmailTaken
	}
	if _, ok := s.byRef[u.ExternalRef]; ok {
		return ports.ErrIdentifierTaken
	}
	if _, ok := s.wallets[w.ID]; ok {
		return ports.ErrIdentifierTaken
	}
	if _, ok := s.users[u.ID]; ok {
		return ports.ErrIdentifierTaken
	}
	return nil
}
