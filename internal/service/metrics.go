package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockbank_ledger_operations_total",
			Help: "Ledger operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ledgerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mockbank_ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	webhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockbank_webhook_deliveries_total",
			Help: "Webhook endpoint deliveries by final outcome",
		},
		[]string{"outcome"},
	)

	webhookAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mockbank_webhook_attempts_total",
			Help: "Individual webhook HTTP attempts",
		},
	)

	webhookQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mockbank_webhook_queue_dropped_total",
			Help: "Transactions dropped because the dispatch queue was full or closed",
		},
	)
)

const (
	outcomeCompleted = "completed"
	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
)
