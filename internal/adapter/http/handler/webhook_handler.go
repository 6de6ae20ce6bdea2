package handler

import (
	"mockbank/internal/adapter/http/dto"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"
	"mockbank/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the operator surface of the webhook dispatcher. It is
// only mounted outside production.
type WebhookHandler struct {
	webhooks ports.WebhookService
}

func NewWebhookHandler(webhooks ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Status handles GET /api/v1/operator/webhooks.
func (h *WebhookHandler) Status(c *gin.Context) {
	urls, err := h.webhooks.SubscriberURLs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WebhookStatusResponse{
		Settings:    h.webhooks.Settings(),
		Subscribers: urls,
	})
}

// AddSubscriber handles POST /api/v1/operator/webhooks/subscribers.
func (h *WebhookHandler) AddSubscriber(c *gin.Context) {
	var req dto.SubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	added, err := h.webhooks.AddSubscriberURL(c.Request.Context(), req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.SubscriberChangeResponse{URL: req.URL, Changed: added}
	if added {
		response.Created(c, resp)
		return
	}
	response.OK(c, resp)
}

// RemoveSubscriber handles DELETE /api/v1/operator/webhooks/subscribers?url=.
func (h *WebhookHandler) RemoveSubscriber(c *gin.Context) {
	url := c.Query("url")
	removed, err := h.webhooks.RemoveSubscriberURL(c.Request.Context(), url)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !removed {
		response.Error(c, apperror.ErrNotFound("Subscriber"))
		return
	}
	response.OK(c, dto.SubscriberChangeResponse{URL: url, Changed: true})
}

// SetEnabled handles PUT /api/v1/operator/webhooks/enabled.
func (h *WebhookHandler) SetEnabled(c *gin.Context) {
	var req dto.WebhookToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	h.webhooks.SetEnabled(*req.Enabled)
	response.OK(c, h.webhooks.Settings())
}

// Deliveries handles GET /api/v1/operator/webhooks/deliveries?tx=.
func (h *WebhookHandler) Deliveries(c *gin.Context) {
	logs, err := h.webhooks.DeliveryLog(c.Request.Context(), c.Query("tx"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}

// TestDelivery handles POST /api/v1/operator/webhooks/test. It dispatches a
// fabricated transfer synchronously and reports per-endpoint results.
func (h *WebhookHandler) TestDelivery(c *gin.Context) {
	report, err := h.webhooks.TriggerTestDelivery(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
