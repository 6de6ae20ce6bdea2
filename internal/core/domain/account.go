package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record behind an account.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ExternalRef string    `json:"external_ref"` // canonical spaced form, e.g. "PK93 ABPA 1234 5678 9012"
	WalletID    string    `json:"wallet_id"`    // cached pointer to the owned wallet
	CreatedAt   time.Time `json:"created_at"`
}

// Wallet holds the balance of exactly one user.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"` // minor units, never negative
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDebit reports whether the wallet can cover amount.
func (w *Wallet) CanDebit(amount int64) bool {
	return amount > 0 && w.Balance >= amount
}

// Account is the read model joining a user with its wallet.
type Account struct {
	UserID      uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ExternalRef string    `json:"external_ref"`
	WalletID    string    `json:"wallet_id"`
	Balance     int64     `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAccount builds the read model from its parts.
func NewAccount(u *User, w *Wallet) *Account {
	return &Account{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		ExternalRef: u.ExternalRef,
		WalletID:    w.ID,
		Balance:     w.Balance,
		CreatedAt:   u.CreatedAt,
	}
}
