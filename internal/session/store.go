package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long an idle session is kept.
const DefaultTTL = 7 * 24 * time.Hour

// Store persists CartSessions keyed by an opaque session id.
//
// Load never fails for unknown ids: it returns a fresh, uninitialized session.
type Store interface {
	Load(ctx context.Context, id string) (*CartSession, error)
	Save(ctx context.Context, id string, s *CartSession) error
}

// MemoryStore keeps sessions in process memory with an idle TTL.
// Suitable for development and single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	rec       record
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the stored session or a fresh one when absent or expired.
func (m *MemoryStore) Load(ctx context.Context, id string) (*CartSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return New(), nil
	}
	if !entry.expiresAt.After(m.now()) {
		delete(m.entries, id)
		return New(), nil
	}
	return fromRecord(entry.rec), nil
}

// Save stores the session and extends its TTL.
func (m *MemoryStore) Save(ctx context.Context, id string, s *CartSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = memoryEntry{rec: s.toRecord(), expiresAt: m.now().Add(m.ttl)}
	s.dirty = false
	return nil
}

var _ Store = (*MemoryStore)(nil)
