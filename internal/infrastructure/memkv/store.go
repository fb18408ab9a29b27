// Package memkv is an in-process expiring key-value store. It backs the OTP
// state when STATE_BACKEND=memory and doubles as the store in service tests.
// State is not shared across processes.
package memkv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/marketplace-auth/internal/domain"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Store keeps string values with independent expiries.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{entries: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// lookup must be called with mu held. Expired entries are dropped on access.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// IncrBelow increments the counter at key when it is below limit and re-arms
// its expiry. An absent or expired counter starts at 1. When the live counter
// is already at limit it is left untouched and domain.ErrLimitReached is returned.
func (s *Store) IncrBelow(_ context.Context, key string, limit int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if e, ok := s.lookup(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("counter %s is not numeric: %w", key, err)
		}
		n = parsed
	}
	if n >= limit {
		return n, domain.ErrLimitReached
	}
	n++
	s.entries[key] = entry{value: strconv.FormatInt(n, 10), expiresAt: s.now().Add(ttl)}
	return n, nil
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
