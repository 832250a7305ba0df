package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	profile   Profile
	expiresAt time.Time
}

// MemoryStore is a process-local Store with per-entry expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a store whose entries expire ttl after the last
// Save. A non-positive ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)) {
		return nil, ErrNoSession
	}
	p := e.profile
	return &p, nil
}

func (s *MemoryStore) Save(_ context.Context, p *Profile) error {
	if p == nil || p.UserID == "" {
		return ErrMissingUserID
	}
	now := s.now()
	p.UpdatedAt = now.UTC()
	e := memoryEntry{profile: *p}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[p.UserID] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}
