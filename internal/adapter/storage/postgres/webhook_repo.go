package postgres

import (
	"context"
	"fmt"

	"mockbank/internal/core/domain"

	"github.com/google/uuid"
)

// DeliveryLogRepo implements ports.DeliveryLogRepository.
type DeliveryLogRepo struct {
	pool Pool
}

// NewDeliveryLogRepo creates a PostgreSQL-backed delivery log.
func NewDeliveryLogRepo(pool Pool) *DeliveryLogRepo {
	return &DeliveryLogRepo{pool: pool}
}

// Create records one endpoint's delivery outcome.
func (r *DeliveryLogRepo) Create(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_delivery_logs
		(id, event_id, transaction_id, webhook_url, payload, http_status, attempts, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID, log.EventID, log.TransactionID, log.WebhookURL,
		log.Payload, log.HTTPStatus, log.Attempts, string(log.Status),
		log.LastError, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery log: %w", err)
	}
	return nil
}

// ListByTransaction returns every delivery recorded for a transaction.
func (r *DeliveryLogRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.WebhookDeliveryLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, transaction_id, webhook_url, payload::TEXT,
		http_status, attempts, status, last_error, created_at, updated_at
		FROM webhook_delivery_logs
		WHERE transaction_id = $1
		ORDER BY created_at DESC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list webhook delivery logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.WebhookDeliveryLog
	for rows.Next() {
		var l domain.WebhookDeliveryLog
		var status string
		if err := rows.Scan(
			&l.ID, &l.EventID, &l.TransactionID, &l.WebhookURL, &l.Payload,
			&l.HTTPStatus, &l.Attempts, &status, &l.LastError,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook delivery log: %w", err)
		}
		l.Status = domain.WebhookStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
