package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	method string
	route  string
}

type auditTarget struct {
	action       domain.AuditAction
	resourceType string
	param        string // path parameter naming the resource, if any
}

var auditRoutes = map[auditRoute]auditTarget{
	{http.MethodPost, "/api/v1/accounts"}:                        {domain.AuditActionCreateAccount, "account", ""},
	{http.MethodPost, "/api/v1/accounts/:id/deposit"}:            {domain.AuditActionDeposit, "account", "id"},
	{http.MethodPut, "/api/v1/accounts/wallet"}:                  {domain.AuditActionRebindWallet, "account", ""},
	{http.MethodPost, "/api/v1/transfers"}:                       {domain.AuditActionTransfer, "transaction", ""},
	{http.MethodPost, "/api/v1/operator/webhooks/subscribers"}:   {domain.AuditActionAddWebhook, "webhook", ""},
	{http.MethodDelete, "/api/v1/operator/webhooks/subscribers"}: {domain.AuditActionRemoveWebhook, "webhook", ""},
	{http.MethodPut, "/api/v1/operator/webhooks/enabled"}:        {domain.AuditActionToggleWebhooks, "webhook", ""},
	{http.MethodPost, "/api/v1/operator/webhooks/test"}:          {domain.AuditActionTestWebhook, "webhook", ""},
}

// AuditLog creates an audit middleware that records successful mutating
// requests. Actions are looked up by the matched route pattern.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		target, ok := mapRouteToAction(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		entry := &domain.AuditLog{
			ID:           uuid.New(),
			Action:       target.action,
			ResourceType: target.resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			RequestID:    c.GetString(CtxRequestID),
			CreatedAt:    time.Now().UTC(),
		}
		if target.param != "" {
			entry.ResourceID = c.Param(target.param)
		}
		auditSvc.Log(c.Request.Context(), entry)
	}
}

func mapRouteToAction(method, route string) (auditTarget, bool) {
	t, ok := auditRoutes[auditRoute{method: method, route: route}]
	return t, ok
}
