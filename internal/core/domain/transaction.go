package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	// TransactionStatusInitiated exists only in memory while a ledger
	// operation runs. It is never persisted.
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid transaction status transition")

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusInitiated: {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusPending:   {TransactionStatusCompleted, TransactionStatusFailed},
}

// Transaction is an immutable record of a balance-affecting event.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	FromWalletID *string           `json:"from_wallet_id"` // nil for deposits
	ToWalletID   string            `json:"to_wallet_id"`
	Amount       int64             `json:"amount"` // minor units
	Status       TransactionStatus `json:"status"`
	Description  string            `json:"description"`
	Type         TransactionType   `json:"type"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewDeposit starts a deposit into toWalletID.
func NewDeposit(toWalletID string, amount int64, holder string, now time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		ToWalletID:  toWalletID,
		Amount:      amount,
		Status:      TransactionStatusInitiated,
		Description: fmt.Sprintf("Deposit to %s's wallet", holder),
		Type:        TransactionTypeDeposit,
		CreatedAt:   now.UTC(),
	}
}

// NewTransfer starts a transfer between two wallets.
func NewTransfer(fromWalletID, toWalletID string, amount int64, fromHolder, toHolder string, now time.Time) *Transaction {
	from := fromWalletID
	return &Transaction{
		ID:           uuid.New(),
		FromWalletID: &from,
		ToWalletID:   toWalletID,
		Amount:       amount,
		Status:       TransactionStatusInitiated,
		Description:  fmt.Sprintf("Transfer from %s to %s", fromHolder, toHolder),
		Type:         TransactionTypeTransfer,
		CreatedAt:    now.UTC(),
	}
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}

// TransitionTo moves the transaction to next if the state machine allows it.
func (t *Transaction) TransitionTo(next TransactionStatus) error {
	for _, s := range allowedTransitions[t.Status] {
		if s == next {
			t.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
}

// Involves reports whether walletID is the source or destination.
func (t *Transaction) Involves(walletID string) bool {
	if t.ToWalletID == walletID {
		return true
	}
	return t.FromWalletID != nil && *t.FromWalletID == walletID
}
