package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "mockbank/internal/adapter/storage/redis"
	"mockbank/pkg/apperror"
	"mockbank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Endpoint groups that carry their own rate limit.
const (
	GroupAccounts = "accounts"
	GroupLedger   = "ledger"
	GroupQueries  = "queries"
	GroupOperator = "operator"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-group limits for a per-window budget
// of requests. Reads get the full budget, money movement half, account
// creation and operator calls a quarter.
func DefaultRateLimitRules(requests int64, window time.Duration) map[string]RateLimitRule {
	if window <= 0 {
		window = time.Minute
	}
	share := func(div int64) RateLimitRule {
		limit := requests / div
		if limit < 1 {
			limit = 1
		}
		return RateLimitRule{Limit: limit, Window: window}
	}
	return map[string]RateLimitRule{
		GroupQueries:  share(1),
		GroupLedger:   share(2),
		GroupAccounts: share(4),
		GroupOperator: share(4),
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store failures let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}
