package handler

import (
	"mockbank/internal/adapter/http/dto"
	"mockbank/internal/core/ports"
	"mockbank/pkg/response"

	"github.com/gin-gonic/gin"
)

// QueryHandler serves system-wide reads.
type QueryHandler struct {
	query ports.QueryService
}

func NewQueryHandler(query ports.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

// ListTransactions handles GET /api/v1/transactions, newest first.
func (h *QueryHandler) ListTransactions(c *gin.Context) {
	txns, err := h.query.ListTransactions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txns))
}

// SystemBalance handles GET /api/v1/system/balance.
func (h *QueryHandler) SystemBalance(c *gin.Context) {
	ctx := c.Request.Context()
	total, err := h.query.TotalSystemBalance(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	accounts, err := h.query.ListAccounts(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewSystemBalanceResponse(total, len(accounts)))
}
