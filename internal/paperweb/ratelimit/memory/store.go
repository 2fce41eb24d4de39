// Package memory implements rate limit storage in process memory, for
// single-instance deployments that have no Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit"
)

type window struct {
	count   int
	resetAt time.Time
}

// Store implements rate limit storage with in-process counters
type Store struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewStore creates an in-memory rate limit store
func NewStore() *Store {
	return &Store{windows: make(map[string]*window)}
}

func keyStr(key ratelimit.LimitKey) string {
	return key.Type + ":" + key.RemoteIP + ":" + key.Endpoint
}

// Increment attempts to increment a counter and returns the current count
func (s *Store) Increment(_ context.Context, key ratelimit.LimitKey, limit ratelimit.Limit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	k := keyStr(key)
	w, ok := s.windows[k]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(limit.Period)}
		s.windows[k] = w
	}
	w.count++

	if w.count > limit.Rate+limit.BurstSize {
		return w.count, ratelimit.ErrLimitExceeded
	}
	return w.count, nil
}

// Reset clears a rate limit counter
func (s *Store) Reset(_ context.Context, key ratelimit.LimitKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, keyStr(key))
	return nil
}
