package memory

import (
	"context"
	"sync"

	"entitylog/internal/audit"
)

type key struct {
	entityType string
	entityID   int64
}

// InMemoryStore keeps audit entries in process memory, in append order. It
// backs unit tests and embedded single-process use. It cannot participate in
// a SQL transaction, so flush atomicity is only provided by the postgres
// store.
type InMemoryStore struct {
	mu       sync.RWMutex
	entries  []audit.Entry
	byEntity map[key][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byEntity: make(map[key][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{entityType: entry.EntityType, entityID: entry.EntityID}
	s.byEntity[k] = append(s.byEntity[k], len(s.entries))
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType string, entityID int64) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indexes := s.byEntity[key{entityType: entityType, entityID: entityID}]
	out := make([]audit.Entry, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]audit.Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	// Most recent first, matching the postgres read shape.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *InMemoryStore) All() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops all entries. Use between tests for isolation.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byEntity = make(map[key][]int)
}
