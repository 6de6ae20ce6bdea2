package handler

import (
	"mockbank/internal/adapter/http/dto"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"
	"mockbank/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves the account directory and per-account reads.
type AccountHandler struct {
	accounts ports.AccountService
	query    ports.QueryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts ports.AccountService, query ports.QueryService) *AccountHandler {
	return &AccountHandler{accounts: accounts, query: query}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	acc, err := h.accounts.CreateAccount(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewAccountResponse(acc))
}

// List handles GET /api/v1/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.query.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountListResponse(accounts))
}

// Get handles GET /api/v1/accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	acc, err := h.query.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if acc == nil {
		response.Error(c, apperror.ErrAccountNotFound(apperror.SideUser))
		return
	}
	response.OK(c, dto.NewAccountResponse(acc))
}

// Transactions handles GET /api/v1/accounts/:id/transactions.
func (h *AccountHandler) Transactions(c *gin.Context) {
	txns, err := h.query.TransactionsForAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txns))
}

// Resolve handles GET /api/v1/resolve?ref=. ref may be an external
// reference, a wallet id, or either wrapped in a URI.
func (h *AccountHandler) Resolve(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		response.Error(c, apperror.Validation("ref query parameter is required"))
		return
	}
	acc, err := h.accounts.Resolve(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	if acc == nil {
		response.Error(c, apperror.ErrAccountNotFound(apperror.SideUser))
		return
	}
	response.OK(c, dto.NewAccountResponse(acc))
}

// Wallet handles GET /api/v1/wallets?id=. Wallet ids may be URIs, so they
// travel in the query string.
func (h *AccountHandler) Wallet(c *gin.Context) {
	walletID := c.Query("id")
	if walletID == "" {
		response.Error(c, apperror.Validation("id query parameter is required"))
		return
	}
	acc, err := h.query.GetAccountByWalletID(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if acc == nil {
		response.Error(c, apperror.ErrNotFound("Wallet"))
		return
	}
	response.OK(c, dto.NewAccountResponse(acc))
}

// WalletTransactions handles GET /api/v1/wallets/transactions?id=.
func (h *AccountHandler) WalletTransactions(c *gin.Context) {
	txns, err := h.query.TransactionsForWallet(c.Request.Context(), c.Query("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txns))
}

// RebindWallet handles PUT /api/v1/accounts/wallet.
func (h *AccountHandler) RebindWallet(c *gin.Context) {
	var req dto.RebindWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	acc, err := h.accounts.RebindWalletID(c.Request.Context(), req.ExternalRef, req.WalletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(acc))
}
