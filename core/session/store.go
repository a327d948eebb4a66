package session

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
)

var ErrNotFound = core.NewNotFoundError("session not found")

// Store keeps sessions between requests, keyed by session ID.
type Store interface {
	Save(ctx context.Context, s *Session) error
	// Load returns ErrNotFound for unknown or expired sessions.
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Entries expire after ttl; a zero ttl never expires.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (st *MemoryStore) Save(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry := memoryEntry{data: s.Data()}
	if st.ttl > 0 {
		entry.expiresAt = core.Now().Add(st.ttl)
	}
	st.entries[s.ID()] = entry
	return nil
}

func (st *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !core.Now().Before(entry.expiresAt) {
		delete(st.entries, id)
		return nil, ErrNotFound
	}
	return Restore(entry.data), nil
}

func (st *MemoryStore) Delete(_ context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.entries, id)
	return nil
}
