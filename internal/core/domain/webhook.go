package domain

import (
	"encoding/json"
	"time"

	"mockbank/pkg/money"

	"github.com/google/uuid"
)

// EventTransactionCreated is the only event type emitted today.
const EventTransactionCreated = "transaction.created"

// WebhookStatus represents the delivery state of a webhook.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "PENDING"
	WebhookStatusDelivered WebhookStatus = "DELIVERED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookEvent is the wire payload POSTed to every subscriber.
type WebhookEvent struct {
	EventType string                 `json:"eventType"`
	Timestamp time.Time              `json:"timestamp"`
	Data      WebhookTransactionData `json:"data"`
}

// WebhookTransactionData carries the full field set of a transaction.
type WebhookTransactionData struct {
	TransactionID string            `json:"transactionId"`
	FromWalletID  *string           `json:"fromWalletId"`
	ToWalletID    string            `json:"toWalletId"`
	Amount        json.Number       `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description"`
	Type          TransactionType   `json:"type"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// NewTransactionCreatedEvent builds the payload for t dispatched at now.
func NewTransactionCreatedEvent(t *Transaction, now time.Time) WebhookEvent {
	return WebhookEvent{
		EventType: EventTransactionCreated,
		Timestamp: now.UTC(),
		Data: WebhookTransactionData{
			TransactionID: t.ID.String(),
			FromWalletID:  t.FromWalletID,
			ToWalletID:    t.ToWalletID,
			Amount:        money.JSON(t.Amount),
			Status:        t.Status,
			Description:   t.Description,
			Type:          t.Type,
			OccurredAt:    t.CreatedAt.UTC(),
		},
	}
}

// WebhookDeliveryLog records the outcome of delivering one event to one URL.
type WebhookDeliveryLog struct {
	ID            uuid.UUID     `json:"id"`
	EventID       string        `json:"event_id"`
	TransactionID uuid.UUID     `json:"transaction_id"`
	WebhookURL    string        `json:"webhook_url"`
	Payload       string        `json:"payload"` // JSON string
	HTTPStatus    *int          `json:"http_status"`
	Attempts      int           `json:"attempts"`
	Status        WebhookStatus `json:"status"`
	LastError     *string       `json:"last_error"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// WebhookSettings is a snapshot of the dispatcher configuration.
type WebhookSettings struct {
	Enabled       bool          `json:"enabled"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
	Timeout       time.Duration `json:"timeout"`
	Source        string        `json:"source"`
	Signed        bool          `json:"signed"`
}

// EndpointResult is the final outcome of delivering one event to one URL.
type EndpointResult struct {
	URL        string `json:"url"`
	Delivered  bool   `json:"delivered"`
	Attempts   int    `json:"attempts"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DispatchReport summarises one dispatch across all subscribers.
type DispatchReport struct {
	EventID string           `json:"event_id,omitempty"`
	Success bool             `json:"success"`
	Skipped bool             `json:"skipped"` // disabled or no subscribers
	Results []EndpointResult `json:"results"`
}
