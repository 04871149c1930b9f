package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Memory is a process-local Ephemeral used when Redis is unavailable and in
// tests. Expired entries are dropped lazily on access.
//
// Now is the clock used for expiry checks; tests override it to advance time.
type Memory struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry
}

func NewMemory() *Memory {
	return &Memory{Now: time.Now, entries: make(map[string]memEntry)}
}

func (s *Memory) live(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *Memory) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		ne := memEntry{value: "1"}
		if ttl > 0 {
			ne.expiresAt = s.Now().Add(ttl)
		}
		s.entries[key] = ne
		return 1, nil
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	s.entries[key] = e
	return n, nil
}

func (s *Memory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok, nil
}

func (s *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return -2 * time.Second, nil // mirrors the Redis convention for missing keys
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return e.expiresAt.Sub(s.Now()), nil
}
