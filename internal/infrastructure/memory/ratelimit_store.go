package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chama-ledger/ledger/internal/domain/ratelimit"
)

type record struct {
	count  int
	start  time.Time
	expiry time.Time
}

// RateLimitStore is the process-local ratelimit.Store used when the shared store is unavailable.
type RateLimitStore struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewRateLimitStore creates an empty local store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{records: make(map[string]*record)}
}

func (s *RateLimitStore) Hit(_ context.Context, key string, capacity int, window time.Duration, now time.Time) (ratelimit.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || !now.Before(rec.expiry) {
		rec = &record{count: 1, start: now, expiry: now.Add(window)}
		s.records[key] = rec
		return ratelimit.Hit{Allowed: true, Count: 1, WindowStart: rec.start, WindowExpiry: rec.expiry}, nil
	}
	if rec.count >= capacity {
		return ratelimit.Hit{Allowed: false, Count: rec.count, WindowStart: rec.start, WindowExpiry: rec.expiry}, nil
	}
	rec.count++
	return ratelimit.Hit{Allowed: true, Count: rec.count, WindowStart: rec.start, WindowExpiry: rec.expiry}, nil
}

func (s *RateLimitStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *RateLimitStore) Sweep(_ context.Context, prefix string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	match := prefix + ":"
	for key, rec := range s.records {
		if prefix != "" && !strings.HasPrefix(key, match) {
			continue
		}
		if !now.Before(rec.expiry) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked records.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
