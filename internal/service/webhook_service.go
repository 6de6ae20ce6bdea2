package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Webhook request headers.
const (
	HeaderWebhookSource    = "X-Webhook-Source"
	HeaderWebhookTimestamp = "X-Webhook-Timestamp"
	HeaderWebhookID        = "X-Webhook-Id"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// Fabricated transaction used by TriggerTestDelivery when no sample is given.
const (
	testSourceWalletID      = "wallet-test-source"
	testDestinationWalletID = "wallet-test-destination"
	testAmountMinor         = 10000
	testDescription         = "Test webhook transaction"
)

const maxResponseDrain = 64 << 10

var errQueueClosed = errors.New("webhook queue closed")

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookOptions configures a WebhookServiceImpl.
type WebhookOptions struct {
	Enabled       bool
	RetryAttempts int
	RetryDelay    time.Duration
	Timeout       time.Duration
	Source        string
	Secret        string
	Workers       int
	QueueSize     int
}

// WebhookServiceImpl implements ports.WebhookService. It owns its settings,
// reads subscribers from a SubscriberStore at the start of every dispatch and
// drains a bounded queue with a fixed set of workers.
type WebhookServiceImpl struct {
	subscribers ports.SubscriberStore
	deliveries  ports.DeliveryLogRepository
	sigSvc      ports.SignatureService
	httpClient  HTTPClient
	log         zerolog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	settings domain.WebhookSettings
	secret   string

	workers int
	queue   chan *domain.Transaction
	qmu     sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	start   sync.Once
}

// NewWebhookService creates a new webhook dispatcher. deliveries may be nil.
func NewWebhookService(
	opts WebhookOptions,
	subscribers ports.SubscriberStore,
	deliveries ports.DeliveryLogRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
) *WebhookServiceImpl {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	return &WebhookServiceImpl{
		subscribers: subscribers,
		deliveries:  deliveries,
		sigSvc:      sigSvc,
		httpClient:  httpClient,
		log:         log,
		now:         time.Now,
		settings: domain.WebhookSettings{
			Enabled:       opts.Enabled,
			RetryAttempts: opts.RetryAttempts,
			RetryDelay:    opts.RetryDelay,
			Timeout:       opts.Timeout,
			Source:        opts.Source,
			Signed:        opts.Secret != "",
		},
		secret:  opts.Secret,
		workers: opts.Workers,
		queue:   make(chan *domain.Transaction, opts.QueueSize),
	}
}

// Start launches the queue workers. Later calls are no-ops.
func (s *WebhookServiceImpl) Start(ctx context.Context) {
	s.start.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker(ctx, i)
		}
		s.log.Info().Int("workers", s.workers).Int("queue_size", cap(s.queue)).Msg("webhook dispatcher started")
	})
}

// Stop closes the queue and waits for workers to drain it, or for ctx.
func (s *WebhookServiceImpl) Stop(ctx context.Context) error {
	s.qmu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.qmu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("webhook dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining webhook queue: %w", ctx.Err())
	}
}

func (s *WebhookServiceImpl) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	log := s.log.With().Int("worker", id).Logger()
	for t := range s.queue {
		if ok := s.Dispatch(ctx, t); !ok {
			log.Debug().Str("tx_id", t.ID.String()).Msg("dispatch did not reach every subscriber")
		}
	}
}

// Enqueue hands t to the workers without blocking. It returns false if the
// queue is full or closed; the event is then dropped.
func (s *WebhookServiceImpl) Enqueue(t *domain.Transaction) bool {
	s.qmu.RLock()
	defer s.qmu.RUnlock()

	if s.closed {
		webhookQueueDropped.Inc()
		s.log.Warn().Err(errQueueClosed).Str("tx_id", t.ID.String()).Msg("webhook event dropped")
		return false
	}

	select {
	case s.queue <- t:
		return true
	default:
		webhookQueueDropped.Inc()
		s.log.Warn().Str("tx_id", t.ID.String()).Int("queue_size", cap(s.queue)).Msg("webhook queue full, event dropped")
		return false
	}
}

// Dispatch delivers t to every subscriber and reports whether all succeeded.
// It returns false without sending anything when disabled or unsubscribed.
func (s *WebhookServiceImpl) Dispatch(ctx context.Context, t *domain.Transaction) bool {
	return s.Deliver(ctx, t).Success
}

// Deliver is Dispatch with per-endpoint detail.
func (s *WebhookServiceImpl) Deliver(ctx context.Context, t *domain.Transaction) domain.DispatchReport {
	report, err := s.deliver(ctx, t)
	if err != nil {
		s.log.Error().Err(err).Str("tx_id", t.ID.String()).Msg("webhook dispatch aborted")
	}
	return report
}

func (s *WebhookServiceImpl) deliver(ctx context.Context, t *domain.Transaction) (domain.DispatchReport, error) {
	settings := s.Settings()
	if !settings.Enabled {
		s.log.Debug().Msg("webhooks disabled, skipping dispatch")
		return domain.DispatchReport{Skipped: true}, nil
	}

	urls, err := s.subscribers.List(ctx)
	if err != nil {
		return domain.DispatchReport{}, fmt.Errorf("list subscribers: %w", err)
	}
	if len(urls) == 0 {
		s.log.Debug().Msg("no webhook subscribers, skipping dispatch")
		return domain.DispatchReport{Skipped: true}, nil
	}

	dispatchedAt := s.now().UTC()
	eventID := ulid.Make().String()
	body, err := json.Marshal(domain.NewTransactionCreatedEvent(t, dispatchedAt))
	if err != nil {
		return domain.DispatchReport{EventID: eventID}, fmt.Errorf("marshal webhook payload: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(HeaderWebhookSource, settings.Source)
	headers.Set(HeaderWebhookTimestamp, dispatchedAt.Format(time.RFC3339))
	headers.Set(HeaderWebhookID, eventID)
	if secret := s.signingSecret(); secret != "" {
		headers.Set(HeaderWebhookSignature, s.sigSvc.Sign(secret, body))
	}

	results := make([]domain.EndpointResult, len(urls))
	p := pool.New().WithMaxGoroutines(len(urls))
	for i, u := range urls {
		p.Go(func() {
			results[i] = s.deliverTo(ctx, settings, u, headers, body)
		})
	}
	p.Wait()

	report := domain.DispatchReport{EventID: eventID, Success: true, Results: results}
	delivered := 0
	for _, r := range results {
		if r.Delivered {
			delivered++
		} else {
			report.Success = false
		}
		s.recordDelivery(ctx, eventID, t.ID, string(body), r)
	}

	evt := s.log.Info()
	if !report.Success {
		evt = s.log.Warn()
	}
	evt.Str("event_id", eventID).
		Str("tx_id", t.ID.String()).
		Int("delivered", delivered).
		Int("endpoints", len(urls)).
		Msg("webhook dispatch finished")

	return report, nil
}

// deliverTo retries one endpoint until it answers 2xx or attempts run out.
// There is no delay after the final attempt.
func (s *WebhookServiceImpl) deliverTo(
	ctx context.Context,
	settings domain.WebhookSettings,
	endpoint string,
	headers http.Header,
	body []byte,
) domain.EndpointResult {
	result := domain.EndpointResult{URL: endpoint}
	var lastErr error

	for attempt := 1; attempt <= settings.RetryAttempts; attempt++ {
		result.Attempts = attempt
		webhookAttempts.Inc()

		status, err := s.attempt(ctx, settings.Timeout, endpoint, headers, body)
		result.HTTPStatus = status
		if err == nil {
			result.Delivered = true
			break
		}
		lastErr = err

		s.log.Warn().Err(err).
			Str("url", endpoint).
			Int("attempt", attempt).
			Int("max_attempts", settings.RetryAttempts).
			Msg("webhook attempt failed")

		if attempt < settings.RetryAttempts {
			if err := sleepContext(ctx, settings.RetryDelay); err != nil {
				lastErr = err
				break
			}
		}
	}

	if result.Delivered {
		webhookDeliveries.WithLabelValues(outcomeDelivered).Inc()
		return result
	}

	webhookDeliveries.WithLabelValues(outcomeFailed).Inc()
	result.Error = lastErr.Error()
	s.log.Error().Err(apperror.ErrWebhookDeliveryFailed(endpoint, lastErr)).
		Int("attempts", result.Attempts).
		Msg("webhook delivery gave up")
	return result
}

func (s *WebhookServiceImpl) attempt(
	ctx context.Context,
	timeout time.Duration,
	endpoint string,
	headers http.Header,
	body []byte,
) (int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header = headers.Clone()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (s *WebhookServiceImpl) recordDelivery(ctx context.Context, eventID string, txID uuid.UUID, payload string, r domain.EndpointResult) {
	if s.deliveries == nil {
		return
	}

	now := s.now().UTC()
	entry := &domain.WebhookDeliveryLog{
		ID:            uuid.New(),
		EventID:       eventID,
		TransactionID: txID,
		WebhookURL:    r.URL,
		Payload:       payload,
		Attempts:      r.Attempts,
		Status:        domain.WebhookStatusDelivered,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if r.HTTPStatus != 0 {
		status := r.HTTPStatus
		entry.HTTPStatus = &status
	}
	if !r.Delivered {
		entry.Status = domain.WebhookStatusFailed
		msg := r.Error
		entry.LastError = &msg
	}

	if err := s.deliveries.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn().Err(err).Str("url", r.URL).Msg("failed to persist webhook delivery log")
	}
}

// AddSubscriberURL registers an http(s) endpoint. It returns false if the URL
// was already subscribed.
func (s *WebhookServiceImpl) AddSubscriberURL(ctx context.Context, rawURL string) (bool, error) {
	u, err := validateSubscriberURL(rawURL)
	if err != nil {
		return false, err
	}
	added, err := s.subscribers.Add(ctx, u)
	if err != nil {
		return false, apperror.ErrStorageFailure(err)
	}
	if added {
		s.log.Info().Str("url", u).Msg("webhook subscriber added")
	}
	return added, nil
}

// RemoveSubscriberURL unregisters an endpoint. It returns false if the URL was
// not subscribed.
func (s *WebhookServiceImpl) RemoveSubscriberURL(ctx context.Context, rawURL string) (bool, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return false, apperror.Validation("url is required")
	}
	removed, err := s.subscribers.Remove(ctx, u)
	if err != nil {
		return false, apperror.ErrStorageFailure(err)
	}
	if removed {
		s.log.Info().Str("url", u).Msg("webhook subscriber removed")
	}
	return removed, nil
}

func (s *WebhookServiceImpl) SubscriberURLs(ctx context.Context) ([]string, error) {
	urls, err := s.subscribers.List(ctx)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

func (s *WebhookServiceImpl) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.settings.Enabled = enabled
	s.mu.Unlock()
	s.log.Info().Bool("enabled", enabled).Msg("webhooks toggled")
}

// Settings returns a snapshot of the current configuration.
func (s *WebhookServiceImpl) Settings() domain.WebhookSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *WebhookServiceImpl) signingSecret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// TriggerTestDelivery dispatches sample synchronously, or a fabricated
// 100.00 transfer between two test wallets when sample is nil.
func (s *WebhookServiceImpl) TriggerTestDelivery(ctx context.Context, sample *domain.Transaction) (domain.DispatchReport, error) {
	if sample == nil {
		sample = newTestTransaction(s.now())
	}
	report, err := s.deliver(ctx, sample)
	if err != nil {
		return report, apperror.ErrStorageFailure(err)
	}
	return report, nil
}

// DeliveryLog returns the recorded per-endpoint outcomes for a transaction.
func (s *WebhookServiceImpl) DeliveryLog(ctx context.Context, transactionID string) ([]domain.WebhookDeliveryLog, error) {
	id, err := uuid.Parse(strings.TrimSpace(transactionID))
	if err != nil {
		return nil, apperror.Validation("tx must be a transaction id")
	}
	if s.deliveries == nil {
		return []domain.WebhookDeliveryLog{}, nil
	}
	logs, err := s.deliveries.ListByTransaction(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}
	if logs == nil {
		logs = []domain.WebhookDeliveryLog{}
	}
	return logs, nil
}

func newTestTransaction(now time.Time) *domain.Transaction {
	from := testSourceWalletID
	return &domain.Transaction{
		ID:           uuid.New(),
		FromWalletID: &from,
		ToWalletID:   testDestinationWalletID,
		Amount:       testAmountMinor,
		Status:       domain.TransactionStatusCompleted,
		Description:  testDescription,
		Type:         domain.TransactionTypeTransfer,
		CreatedAt:    now.UTC(),
	}
}

func validateSubscriberURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperror.Validation("url must be an absolute http(s) URL")
	}
	return raw, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
