package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mockbank/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := domain.BuildIdempotencyKey("transfer", "client-key-1")
	value := []byte(`{"id":"abc","status":"COMPLETED"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, domain.IdempotencyTTL))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "deposit:k", []byte(`{}`), time.Second))

	mr.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "deposit:k")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_KeysAreNamespaced(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	require.NoError(t, cache.Set(context.Background(), "deposit:k", []byte("v"), time.Minute))

	assert.True(t, mr.Exists("mockbank:idempotency:deposit:k"))
}

func TestIdempotencyCache_ConnectionError(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	mr.Close()

	_, err := cache.Get(context.Background(), "deposit:k")
	assert.Error(t, err)
}

func TestIdempotencyCache_ClaimIsExclusive(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		claimed atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cache.Claim(ctx, "deposit:u1:k", domain.IdempotencyClaimTTL)
			if err == nil && ok {
				claimed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), claimed.Load())

	result, err := cache.Get(ctx, "deposit:u1:k")
	require.NoError(t, err)
	assert.Nil(t, result, "in-flight claim is not a response")
}

func TestIdempotencyCache_ClaimAfterResponseStored(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "transfer:k", domain.IdempotencyClaimTTL)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cache.Set(ctx, "transfer:k", []byte(`{"status":201}`), domain.IdempotencyTTL))

	ok, err = cache.Claim(ctx, "transfer:k", domain.IdempotencyClaimTTL)
	require.NoError(t, err)
	assert.False(t, ok)

	// Release must not drop a stored response.
	require.NoError(t, cache.Release(ctx, "transfer:k"))
	result, err := cache.Get(ctx, "transfer:k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":201}`), result)
}

func TestIdempotencyCache_ReleaseFreesClaim(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "transfer:k", domain.IdempotencyClaimTTL)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.Release(ctx, "transfer:k"))
	assert.False(t, mr.Exists("mockbank:idempotency:transfer:k"))

	ok, err = cache.Claim(ctx, "transfer:k", domain.IdempotencyClaimTTL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyCache_ClaimExpires(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "deposit:k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = cache.Claim(ctx, "deposit:k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "abandoned claim should expire")
}
