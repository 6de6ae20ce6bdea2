package handler

import (
	"mockbank/internal/adapter/http/middleware"
	redisStore "mockbank/internal/adapter/storage/redis"
	"mockbank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc       ports.AccountService
	LedgerSvc        ports.LedgerService
	QuerySvc         ports.QueryService
	WebhookSvc       ports.WebhookService
	IdempotencyCache ports.IdempotencyCache     // nil = Idempotency-Key ignored
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimitRules   map[string]middleware.RateLimitRule
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	EnableOperator   bool               // mounts /operator routes; never in production
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", Metrics())

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	accountHandler := NewAccountHandler(deps.AccountSvc, deps.QuerySvc)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.IdempotencyCache, deps.Logger)
	queryHandler := NewQueryHandler(deps.QuerySvc)

	v1 := r.Group("/api/v1")

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", rl(middleware.GroupAccounts), accountHandler.Create)
		accounts.GET("", rl(middleware.GroupQueries), accountHandler.List)
		accounts.PUT("/wallet", rl(middleware.GroupAccounts), accountHandler.RebindWallet)
		accounts.GET("/:id", rl(middleware.GroupQueries), accountHandler.Get)
		accounts.GET("/:id/transactions", rl(middleware.GroupQueries), accountHandler.Transactions)
		accounts.POST("/:id/deposit", rl(middleware.GroupLedger), ledgerHandler.Deposit)
	}

	wallets := v1.Group("/wallets")
	{
		wallets.GET("", rl(middleware.GroupQueries), accountHandler.Wallet)
		wallets.GET("/transactions", rl(middleware.GroupQueries), accountHandler.WalletTransactions)
	}

	v1.GET("/resolve", rl(middleware.GroupQueries), accountHandler.Resolve)
	v1.POST("/transfers", rl(middleware.GroupLedger), ledgerHandler.Transfer)
	v1.GET("/transactions", rl(middleware.GroupQueries), queryHandler.ListTransactions)
	v1.GET("/system/balance", rl(middleware.GroupQueries), queryHandler.SystemBalance)

	// --- Operator routes (non-production) ---
	if deps.EnableOperator && deps.WebhookSvc != nil {
		webhookHandler := NewWebhookHandler(deps.WebhookSvc)
		webhooks := v1.Group("/operator/webhooks", rl(middleware.GroupOperator))
		{
			webhooks.GET("", webhookHandler.Status)
			webhooks.POST("/subscribers", webhookHandler.AddSubscriber)
			webhooks.DELETE("/subscribers", webhookHandler.RemoveSubscriber)
			webhooks.PUT("/enabled", webhookHandler.SetEnabled)
			webhooks.POST("/test", webhookHandler.TestDelivery)
			webhooks.GET("/deliveries", webhookHandler.Deliveries)
		}
	}

	return r
}
