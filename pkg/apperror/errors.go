package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable category of an AppError.
type Kind string

const (
	KindInvalidAmount         Kind = "INVALID_AMOUNT"
	KindSameAccount           Kind = "SAME_ACCOUNT"
	KindAccountNotFound       Kind = "ACCOUNT_NOT_FOUND"
	KindInsufficientFunds     Kind = "INSUFFICIENT_FUNDS"
	KindDuplicateEmail        Kind = "DUPLICATE_EMAIL"
	KindDuplicateAccount      Kind = "DUPLICATE_ACCOUNT"
	KindStorageFailure        Kind = "STORAGE_FAILURE"
	KindWebhookDeliveryFailed Kind = "WEBHOOK_DELIVERY_FAILED"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindRateLimited           Kind = "RATE_LIMITED"
	KindIdempotencyConflict   Kind = "IDEMPOTENCY_CONFLICT"
	KindNotFound              Kind = "NOT_FOUND"
	KindInternal              Kind = "INTERNAL_ERROR"
)

// Side qualifies an ACCOUNT_NOT_FOUND error.
type Side string

const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
	SideUser        Side = "user"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Side       Side   `json:"side,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ---- Ledger (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", KindInvalidAmount, "Amount must be greater than zero", http.StatusBadRequest)
}

// ErrInvalidAmountPrecision is returned for amounts finer than one minor unit
// or too large to represent.
func ErrInvalidAmountPrecision(err error) *AppError {
	return Wrap("LED_001", KindInvalidAmount, "Amount is not a valid currency value", http.StatusBadRequest, err)
}

func ErrSameAccount() *AppError {
	return New("LED_002", KindSameAccount, "Cannot transfer to the same account", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("LED_003", KindInsufficientFunds, "Insufficient funds", http.StatusPaymentRequired)
}

// ---- Account directory (ACC) ----

func ErrAccountNotFound(side Side) *AppError {
	msg := "Account not found"
	switch side {
	case SideSource:
		msg = "Source account not found"
	case SideDestination:
		msg = "Destination account not found"
	}
	e := New("ACC_001", KindAccountNotFound, msg, http.StatusNotFound)
	e.Side = side
	return e
}

func ErrDuplicateEmail() *AppError {
	return New("ACC_002", KindDuplicateEmail, "User with this email already exists", http.StatusConflict)
}

func ErrDuplicateAccount(err error) *AppError {
	return Wrap("ACC_003", KindDuplicateAccount, "Account identifier already in use", http.StatusConflict, err)
}

// ---- Webhooks (WHK) ----

// ErrWebhookDeliveryFailed is informational. It is logged and reported but
// never returned from a ledger operation.
func ErrWebhookDeliveryFailed(url string, err error) *AppError {
	return Wrap("WHK_001", KindWebhookDeliveryFailed, fmt.Sprintf("Webhook delivery to %s failed", url), http.StatusBadGateway, err)
}

// ---- Transport (REQ / RATE) ----

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", KindValidation, message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("REQ_002", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrIdempotencyInProgress is returned while another request holding the same
// Idempotency-Key is still running.
func ErrIdempotencyInProgress() *AppError {
	return New("REQ_003", KindIdempotencyConflict, "A request with this Idempotency-Key is in progress", http.StatusConflict)
}

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageFailure wraps any persistence-layer error.
func ErrStorageFailure(err error) *AppError {
	return Wrap("SYS_001", KindStorageFailure, "Storage failure", http.StatusInternalServerError, err)
}

// InternalError wraps an unexpected error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", KindInternal, "Internal server error", http.StatusInternalServerError, err)
}
