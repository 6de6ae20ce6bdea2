package domain

import (
	"strings"
	"time"
)

// IdempotencyTTL bounds how long a replayable response is kept.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyClaimTTL bounds how long a key stays reserved by a request that
// never finished.
const IdempotencyClaimTTL = 30 * time.Second

// BuildIdempotencyKey scopes a client-supplied key to one operation so the
// same key cannot replay a deposit as a transfer.
func BuildIdempotencyKey(operation, clientKey string) string {
	return operation + ":" + strings.TrimSpace(clientKey)
}
