package dedup

import (
	"context"
	"sync"
	"time"
)

type record struct {
	reservedAt time.Time
}

// MemoryStore is a mutex-guarded map keyed (phone, day). It backs tests and
// redis-less deployments; state does not survive restarts.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]record
	loc       *time.Location
	retention time.Duration
	now       func() time.Time
}

func NewMemoryStore(loc *time.Location, retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &MemoryStore{
		entries:   make(map[string]record),
		loc:       loc,
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) CheckAndReserve(_ context.Context, phone string) (Result, error) {
	now := s.now()
	key := phone + ":" + DayKey(now, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	if _, exists := s.entries[key]; exists {
		return AlreadySent, nil
	}
	s.entries[key] = record{reservedAt: now}
	return Allowed, nil
}

// sweepLocked lazily drops entries past the retention window.
func (s *MemoryStore) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.retention)
	for k, r := range s.entries {
		if r.reservedAt.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Len reports the live entry count, for tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
