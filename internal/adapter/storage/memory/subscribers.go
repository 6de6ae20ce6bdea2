package memory

import (
	"context"
	"sync"
)

// SubscriberSet is an ordered set of webhook URLs held in process memory.
type SubscriberSet struct {
	mu   sync.RWMutex
	urls []string
}

// NewSubscriberSet seeds the set, dropping duplicates.
func NewSubscriberSet(urls ...string) *SubscriberSet {
	s := &SubscriberSet{}
	for _, u := range urls {
		s.add(u)
	}
	return s
}

func (s *SubscriberSet) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.urls...), nil
}

func (s *SubscriberSet) Add(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(url), nil
}

func (s *SubscriberSet) Remove(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.urls {
		if u == url {
			s.urls = append(s.urls[:i:i], s.urls[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *SubscriberSet) add(url string) bool {
	for _, u := range s.urls {
		if u == url {
			return false
		}
	}
	s.urls = append(s.urls, url)
	return true
}
