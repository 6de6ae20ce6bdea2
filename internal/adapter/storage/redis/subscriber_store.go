package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// SubscriberStore implements ports.SubscriberStore on a sorted set so every
// instance sees the same ordered list. Scores come from a monotonic counter,
// which keeps insertion order.
type SubscriberStore struct {
	client *goredis.Client
	setKey string
	seqKey string
}

// NewSubscriberStore creates a Redis-backed subscriber registry.
func NewSubscriberStore(client *goredis.Client) *SubscriberStore {
	return &SubscriberStore{
		client: client,
		setKey: keyPrefix + "webhook:subscribers",
		seqKey: keyPrefix + "webhook:subscribers:seq",
	}
}

// List returns the subscriber URLs in insertion order.
func (s *SubscriberStore) List(ctx context.Context) ([]string, error) {
	urls, err := s.client.ZRange(ctx, s.setKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list subscribers: %w", err)
	}
	return urls, nil
}

// Add inserts url unless it is already present.
func (s *SubscriberStore) Add(ctx context.Context, url string) (bool, error) {
	seq, err := s.client.Incr(ctx, s.seqKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis subscriber seq: %w", err)
	}

	added, err := s.client.ZAddNX(ctx, s.setKey, goredis.Z{Score: float64(seq), Member: url}).Result()
	if err != nil {
		return false, fmt.Errorf("redis add subscriber: %w", err)
	}
	return added == 1, nil
}

// Remove deletes url if present.
func (s *SubscriberStore) Remove(ctx context.Context, url string) (bool, error) {
	removed, err := s.client.ZRem(ctx, s.setKey, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis remove subscriber: %w", err)
	}
	return removed == 1, nil
}
