package handler

import (
	"encoding/json"
	"net/http"

	"mockbank/internal/adapter/http/dto"
	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"
	"mockbank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderIdempotencyKey lets clients retry money movement safely.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay marks a response served from the cache.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

// LedgerHandler serves deposits and transfers.
type LedgerHandler struct {
	ledger ports.LedgerService
	cache  ports.IdempotencyCache // nil = Idempotency-Key ignored
	log    zerolog.Logger
}

// NewLedgerHandler creates a new LedgerHandler. cache may be nil.
func NewLedgerHandler(ledger ports.LedgerService, cache ports.IdempotencyCache, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, cache: cache, log: log}
}

// Deposit handles POST /api/v1/accounts/:id/deposit.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	userID := c.Param("id")

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	key, ok := h.claim(c, "deposit:"+userID)
	if !ok {
		return
	}

	acc, err := h.ledger.Deposit(c.Request.Context(), userID, *req.Amount)
	if err != nil {
		h.fail(c, key, err)
		return
	}
	h.respond(c, key, http.StatusOK, dto.NewAccountResponse(acc))
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	key, ok := h.claim(c, "transfer")
	if !ok {
		return
	}

	txn, err := h.ledger.Transfer(c.Request.Context(), req.From, req.To, *req.Amount)
	if err != nil {
		h.fail(c, key, err)
		return
	}
	h.respond(c, key, http.StatusCreated, dto.NewTransactionResponse(txn))
}

type idempotentEntry struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// claim reserves the scoped Idempotency-Key for this request. It returns the
// key to complete later, or "" when the client sent none or the cache is
// unavailable. When the key is already taken it writes either the stored
// response or a conflict and returns false.
func (h *LedgerHandler) claim(c *gin.Context, operation string) (string, bool) {
	clientKey := c.GetHeader(HeaderIdempotencyKey)
	if clientKey == "" || h.cache == nil {
		return "", true
	}
	if len(clientKey) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key is too long"))
		return "", false
	}

	ctx := c.Request.Context()
	key := domain.BuildIdempotencyKey(operation, clientKey)
	claimed, err := h.cache.Claim(ctx, key, domain.IdempotencyClaimTTL)
	if err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("idempotency claim failed, processing request without replay")
		return "", true
	}
	if claimed {
		return key, true
	}

	cached, err := h.cache.Get(ctx, key)
	if err != nil {
		response.Error(c, apperror.ErrStorageFailure(err))
		return "", false
	}
	if cached == nil {
		response.Error(c, apperror.ErrIdempotencyInProgress())
		return "", false
	}

	var replay idempotentEntry
	if err := json.Unmarshal(cached, &replay); err != nil {
		response.Error(c, apperror.InternalError(err))
		return "", false
	}

	c.Header(HeaderIdempotentReplay, "true")
	response.Raw(c, replay.Status, replay.Body)
	return "", false
}

// fail releases the claim on key so the client may retry, then writes err.
func (h *LedgerHandler) fail(c *gin.Context, key string, err error) {
	if key != "" {
		if rerr := h.cache.Release(c.Request.Context(), key); rerr != nil {
			h.log.Warn().Err(rerr).Str("key", key).Msg("idempotency release failed")
		}
	}
	response.Error(c, err)
}

// respond writes data and, when key is set, stores the exact bytes sent.
func (h *LedgerHandler) respond(c *gin.Context, key string, status int, data interface{}) {
	body, err := json.Marshal(response.Envelope(c, data))
	if err != nil {
		h.fail(c, key, apperror.InternalError(err))
		return
	}

	if key != "" {
		entry, _ := json.Marshal(idempotentEntry{Status: status, Body: body})
		if err := h.cache.Set(c.Request.Context(), key, entry, domain.IdempotencyTTL); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("idempotency cache write failed")
		}
	}

	response.Raw(c, status, body)
}
