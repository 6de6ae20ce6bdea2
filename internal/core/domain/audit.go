package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCreateAccount  AuditAction = "CREATE_ACCOUNT"
	AuditActionDeposit        AuditAction = "DEPOSIT"
	AuditActionTransfer       AuditAction = "TRANSFER"
	AuditActionRebindWallet   AuditAction = "REBIND_WALLET"
	AuditActionAddWebhook     AuditAction = "ADD_WEBHOOK"
	AuditActionRemoveWebhook  AuditAction = "REMOVE_WEBHOOK"
	AuditActionToggleWebhooks AuditAction = "TOGGLE_WEBHOOKS"
	AuditActionTestWebhook    AuditAction = "TEST_WEBHOOK"
)

// AuditLog records a single mutating request.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	RequestID    string      `json:"request_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
