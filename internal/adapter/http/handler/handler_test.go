package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports/mocks"
	"mockbank/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleAccount() *domain.Account {
	return &domain.Account{
		UserID:      uuid.New(),
		Name:        "Alice",
		Email:       "alice@x.com",
		ExternalRef: "PK93 ABPA 1234 5678 9012",
		WalletID:    "wallet-1a2b3c4d",
		Balance:     12345,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// --- Account Handler Tests ---

func TestAccountHandler_Create_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(accounts, mocks.NewMockQueryService(ctrl))

	acc := sampleAccount()
	acc.Balance = 0
	accounts.EXPECT().CreateAccount(gomock.Any(), "Alice", "alice@x.com").Return(acc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/accounts", map[string]string{
		"name":  "  Alice ",
		"email": "alice@x.com",
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, acc.UserID.String(), data["id"])
	assert.Equal(t, "PK93 ABPA 1234 5678 9012", data["external_ref"])
	assert.Equal(t, "wallet-1a2b3c4d", data["wallet_id"])
	assert.Equal(t, float64(0), data["balance"])
	assert.Equal(t, "2026-01-02T03:04:05Z", data["created_at"])
}

func TestAccountHandler_Create_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mocks.NewMockQueryService(ctrl))

	for _, body := range []interface{}{
		map[string]string{},
		map[string]string{"name": "Alice", "email": "nope"},
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = jsonRequest(http.MethodPost, "/api/v1/accounts", body)

		h.Create(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w)["kind"])
	}
}

func TestAccountHandler_Create_DuplicateEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(accounts, mocks.NewMockQueryService(ctrl))
	accounts.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrDuplicateEmail())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", map[string]string{"name": "A", "email": "a@x.com"})

	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ACC_002", decodeError(t, w)["error_code"])
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mocks.NewMockQueryService(ctrl)
	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), query)
	query.EXPECT().GetAccount(gomock.Any(), "missing").Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", resp["kind"])
	assert.Equal(t, "user", resp["side"])
}

func TestAccountHandler_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(accounts, mocks.NewMockQueryService(ctrl))
	acc := sampleAccount()
	accounts.EXPECT().Resolve(gomock.Any(), "https://bank.example.com/PK93ABPA123456789012").Return(acc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/resolve?ref=https%3A%2F%2Fbank.example.com%2FPK93ABPA123456789012", nil)

	h.Resolve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(123.45), decodeData(t, w)["balance"])
}

func TestAccountHandler_Wallet_MissingID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mocks.NewMockQueryService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)

	h.Wallet(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_RebindWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(accounts, mocks.NewMockQueryService(ctrl))
	accounts.EXPECT().
		RebindWalletID(gomock.Any(), "PK93 ABPA 1234 5678 9012", "wallet-taken").
		Return(nil, apperror.ErrDuplicateAccount(errors.New("unique")))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPut, "/api/v1/accounts/wallet", map[string]string{
		"external_ref": "PK93 ABPA 1234 5678 9012",
		"wallet_id":    "wallet-taken",
	})

	h.RebindWallet(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ACCOUNT", decodeError(t, w)["kind"])
}

// --- Ledger Handler Tests ---

func TestLedgerHandler_Transfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger, nil, zerolog.Nop())

	from := "wallet-a"
	txn := &domain.Transaction{
		ID:           uuid.New(),
		FromWalletID: &from,
		ToWalletID:   "wallet-b",
		Amount:       2550,
		Status:       domain.TransactionStatusCompleted,
		Type:         domain.TransactionTypeTransfer,
		Description:  "Transfer from Alice to Bob",
		CreatedAt:    time.Now(),
	}
	ledger.EXPECT().
		Transfer(gomock.Any(), "PK93 ABPA 1234 5678 9012", "wallet-b", decimal.RequireFromString("25.5")).
		Return(txn, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
		bytes.NewReader([]byte(`{"from":"PK93 ABPA 1234 5678 9012","to":"wallet-b","amount":"25.5"}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, txn.ID.String(), data["id"])
	assert.Equal(t, "wallet-a", data["from_wallet_id"])
	assert.Equal(t, float64(25.5), data["amount"])
	assert.Equal(t, "TRANSFER", data["type"])
}

func TestLedgerHandler_Transfer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		side   string
	}{
		{"insufficient", apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", ""},
		{"same", apperror.ErrSameAccount(), http.StatusBadRequest, "SAME_ACCOUNT", ""},
		{"source", apperror.ErrAccountNotFound(apperror.SideSource), http.StatusNotFound, "ACCOUNT_NOT_FOUND", "source"},
		{"destination", apperror.ErrAccountNotFound(apperror.SideDestination), http.StatusNotFound, "ACCOUNT_NOT_FOUND", "destination"},
		{"amount", apperror.ErrInvalidAmount(), http.StatusBadRequest, "INVALID_AMOUNT", ""},
		{"storage", apperror.ErrStorageFailure(errors.New("boom")), http.StatusInternalServerError, "STORAGE_FAILURE", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ledger := mocks.NewMockLedgerService(ctrl)
			h := NewLedgerHandler(ledger, nil, zerolog.Nop())
			ledger.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = jsonRequest(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
				"from": "a", "to": "b", "amount": 1,
			})

			h.Transfer(c)

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tc.kind, resp["kind"])
			if tc.side != "" {
				assert.Equal(t, tc.side, resp["side"])
			}
		})
	}
}

func TestLedgerHandler_Deposit_MissingAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), nil, zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/accounts/x/deposit", map[string]string{})
	c.Params = gin.Params{{Key: "id", Value: "x"}}

	h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func sendDeposit(h *LedgerHandler, userID, clientKey string, amount interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/accounts/"+userID+"/deposit", map[string]interface{}{"amount": amount})
	if clientKey != "" {
		c.Request.Header.Set(HeaderIdempotencyKey, clientKey)
	}
	c.Params = gin.Params{{Key: "id", Value: userID}}
	h.Deposit(c)
	return w
}

func TestLedgerHandler_Deposit_IdempotentReplay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)
	h := NewLedgerHandler(ledger, cache, zerolog.Nop())

	acc := sampleAccount()
	userID := acc.UserID.String()
	key := domain.BuildIdempotencyKey("deposit:"+userID, "client-key-1")

	var stored []byte
	gomock.InOrder(
		cache.EXPECT().Claim(gomock.Any(), key, domain.IdempotencyClaimTTL).Return(true, nil),
		ledger.EXPECT().Deposit(gomock.Any(), userID, decimal.RequireFromString("10")).Return(acc, nil),
		cache.EXPECT().Set(gomock.Any(), key, gomock.Any(), domain.IdempotencyTTL).DoAndReturn(
			func(_ context.Context, _ string, value []byte, _ time.Duration) error {
				stored = value
				return nil
			},
		),
		cache.EXPECT().Claim(gomock.Any(), key, domain.IdempotencyClaimTTL).Return(false, nil),
		cache.EXPECT().Get(gomock.Any(), key).DoAndReturn(
			func(_ context.Context, _ string) ([]byte, error) { return stored, nil },
		),
	)

	first := sendDeposit(h, userID, "client-key-1", 10)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(HeaderIdempotentReplay))

	second := sendDeposit(h, userID, "client-key-1", 10)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestLedgerHandler_Deposit_KeyInFlightConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)
	h := NewLedgerHandler(ledger, cache, zerolog.Nop())

	userID := sampleAccount().UserID.String()
	cache.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)

	w := sendDeposit(h, userID, "k", 10)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decodeError(t, w)["kind"])
}

func TestLedgerHandler_Deposit_FailureReleasesKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)
	h := NewLedgerHandler(ledger, cache, zerolog.Nop())

	userID := sampleAccount().UserID.String()
	key := domain.BuildIdempotencyKey("deposit:"+userID, "k")
	gomock.InOrder(
		cache.EXPECT().Claim(gomock.Any(), key, gomock.Any()).Return(true, nil),
		ledger.EXPECT().Deposit(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrAccountNotFound(apperror.SideUser)),
		cache.EXPECT().Release(gomock.Any(), key).Return(nil),
	)

	w := sendDeposit(h, userID, "k", 10)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerHandler_Deposit_InvalidBodyDoesNotClaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No cache expectations: a rejected body must not reserve the key.
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockIdempotencyCache(ctrl), zerolog.Nop())

	w := sendDeposit(h, "x", "k", "not-a-number")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_Deposit_CacheErrorsDoNotBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)
	h := NewLedgerHandler(ledger, cache, zerolog.Nop())

	acc := sampleAccount()
	cache.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	ledger.EXPECT().Deposit(gomock.Any(), gomock.Any(), gomock.Any()).Return(acc, nil)

	w := sendDeposit(h, acc.UserID.String(), "k", "1.00")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLedgerHandler_Deposit_ReadErrorAfterLostClaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := mocks.NewMockIdempotencyCache(ctrl)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), cache, zerolog.Nop())

	cache.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

	w := sendDeposit(h, sampleAccount().UserID.String(), "k", 1)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- Query Handler Tests ---

func TestQueryHandler_SystemBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mocks.NewMockQueryService(ctrl)
	h := NewQueryHandler(query)
	query.EXPECT().TotalSystemBalance(gomock.Any()).Return(decimal.RequireFromString("300.5"), nil)
	query.EXPECT().ListAccounts(gomock.Any()).Return([]domain.Account{*sampleAccount(), *sampleAccount()}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/system/balance", nil)

	h.SystemBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":300.50`)
	assert.Equal(t, float64(2), decodeData(t, w)["accounts"])
}

func TestQueryHandler_ListTransactions_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mocks.NewMockQueryService(ctrl)
	h := NewQueryHandler(query)
	query.EXPECT().ListTransactions(gomock.Any()).Return(nil, apperror.ErrStorageFailure(errors.New("db down")))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", decodeError(t, w)["error_code"])
}

func TestQueryHandler_ListTransactions_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mocks.NewMockQueryService(ctrl)
	h := NewQueryHandler(query)
	query.EXPECT().ListTransactions(gomock.Any()).Return([]domain.Transaction{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

// --- Webhook Handler Tests ---

func TestWebhookHandler_AddSubscriber(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	webhooks.EXPECT().AddSubscriberURL(gomock.Any(), "https://hooks.example.com/in").Return(true, nil)
	webhooks.EXPECT().AddSubscriberURL(gomock.Any(), "https://hooks.example.com/in").Return(false, nil)

	for _, want := range []int{http.StatusCreated, http.StatusOK} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = jsonRequest(http.MethodPost, "/", map[string]string{"url": "https://hooks.example.com/in"})
		h.AddSubscriber(c)
		assert.Equal(t, want, w.Code)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", map[string]string{"url": "ftp://nope"})
	h.AddSubscriber(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_RemoveSubscriber_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	webhooks.EXPECT().RemoveSubscriberURL(gomock.Any(), "https://gone.example.com").Return(false, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/?url=https%3A%2F%2Fgone.example.com", nil)
	h.RemoveSubscriber(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandler_SetEnabledAndStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	webhooks.EXPECT().SetEnabled(false)
	webhooks.EXPECT().Settings().Return(domain.WebhookSettings{Enabled: false, RetryAttempts: 3}).Times(2)
	webhooks.EXPECT().SubscriberURLs(gomock.Any()).Return([]string{"https://a.example.com"}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPut, "/", map[string]bool{"enabled": false})
	h.SetEnabled(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeData(t, w)["enabled"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.Status(c)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, []interface{}{"https://a.example.com"}, data["subscribers"])
}

func TestWebhookHandler_TestDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	webhooks.EXPECT().TriggerTestDelivery(gomock.Any(), nil).Return(domain.DispatchReport{
		EventID: "01HZX",
		Success: false,
		Results: []domain.EndpointResult{{URL: "https://a.example.com", Attempts: 3, HTTPStatus: 500, Error: "unexpected status 500"}},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	h.TestDelivery(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["success"])
	assert.Len(t, data["results"], 1)
}

func TestWebhookHandler_Deliveries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	txID := uuid.New()
	status := http.StatusOK
	webhooks.EXPECT().DeliveryLog(gomock.Any(), txID.String()).Return([]domain.WebhookDeliveryLog{{
		ID: uuid.New(), EventID: "01HZX", TransactionID: txID, WebhookURL: "https://a.example.com",
		HTTPStatus: &status, Attempts: 1, Status: domain.WebhookStatusDelivered,
	}}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/operator/webhooks/deliveries?tx="+txID.String(), nil)
	h.Deliveries(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "DELIVERED", body.Data[0]["status"])
	assert.Equal(t, "https://a.example.com", body.Data[0]["webhook_url"])
}

func TestWebhookHandler_Deliveries_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	webhooks := mocks.NewMockWebhookService(ctrl)
	h := NewWebhookHandler(webhooks)
	webhooks.EXPECT().DeliveryLog(gomock.Any(), "nope").Return(nil, apperror.Validation("tx must be a transaction id"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?tx=nope", nil)
	h.Deliveries(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health / docs ---

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	checker := mocks.NewMockHealthChecker(ctrl)
	checker.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	checker.EXPECT().Name().Return("postgresql").AnyTimes()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(checker)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger", nil)

	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "swagger-ui")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec_Embedded(t *testing.T) {
	defer SetSwaggerSpec(embeddedSpec)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)

	SwaggerSpec(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/transfers")

	SetSwaggerSpec(nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)

	SwaggerSpec(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
