package dto

import (
	"encoding/json"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/pkg/money"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Email string `json:"email" binding:"required,email,max=254"`
}

// DepositRequest is the request body for a deposit. Amount accepts either a
// JSON number or a decimal string.
type DepositRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// TransferRequest is the request body for a transfer. From and To accept any
// account identifier form (external reference, wallet id, or either wrapped
// in a URI).
type TransferRequest struct {
	From   string           `json:"from" binding:"required,max=512"`
	To     string           `json:"to" binding:"required,max=512"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// RebindWalletRequest moves an account to a new wallet id.
type RebindWalletRequest struct {
	ExternalRef string `json:"external_ref" binding:"required,max=64"`
	WalletID    string `json:"wallet_id" binding:"required,wallet_id"`
}

// SubscriberRequest names a webhook endpoint.
type SubscriberRequest struct {
	URL string `json:"url" binding:"required,safe_url,max=2048"`
}

// WebhookToggleRequest turns dispatch on or off.
type WebhookToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	ExternalRef string      `json:"external_ref"`
	WalletID    string      `json:"wallet_id"`
	Balance     json.Number `json:"balance"`
	CreatedAt   string      `json:"created_at"`
}

// TransactionResponse is the public view of a transaction.
type TransactionResponse struct {
	ID           string      `json:"id"`
	FromWalletID *string     `json:"from_wallet_id"`
	ToWalletID   string      `json:"to_wallet_id"`
	Amount       json.Number `json:"amount"`
	Status       string      `json:"status"`
	Type         string      `json:"type"`
	Description  string      `json:"description"`
	CreatedAt    string      `json:"created_at"`
}

// SystemBalanceResponse reports the sum of every wallet.
type SystemBalanceResponse struct {
	Total    json.Number `json:"total"`
	Accounts int         `json:"accounts"`
}

// WebhookStatusResponse is the operator view of the dispatcher.
type WebhookStatusResponse struct {
	Settings    domain.WebhookSettings `json:"settings"`
	Subscribers []string               `json:"subscribers"`
}

// SubscriberChangeResponse reports whether the subscriber set changed.
type SubscriberChangeResponse struct {
	URL     string `json:"url"`
	Changed bool   `json:"changed"`
}

// NewAccountResponse converts domain.Account to DTO.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          a.UserID.String(),
		Name:        a.Name,
		Email:       a.Email,
		ExternalRef: a.ExternalRef,
		WalletID:    a.WalletID,
		Balance:     money.JSON(a.Balance),
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewAccountListResponse(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountResponse(&accounts[i]))
	}
	return out
}

// NewTransactionResponse converts domain.Transaction to DTO.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           t.ID.String(),
		FromWalletID: t.FromWalletID,
		ToWalletID:   t.ToWalletID,
		Amount:       money.JSON(t.Amount),
		Status:       string(t.Status),
		Type:         string(t.Type),
		Description:  t.Description,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func NewTransactionListResponse(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, NewTransactionResponse(&txns[i]))
	}
	return out
}

// NewSystemBalanceResponse formats a total with two fractional digits.
func NewSystemBalanceResponse(total decimal.Decimal, accounts int) SystemBalanceResponse {
	return SystemBalanceResponse{
		Total:    json.Number(total.StringFixed(money.Scale)),
		Accounts: accounts,
	}
}
