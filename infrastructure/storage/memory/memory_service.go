package memory

import (
	"context"
	"sync"
	"time"

	"github.com/veritaslabs/cogito/domain/service"
)

// defaultScope is used when a memory operation does not name one.
const defaultScope = "local"

type memoryKey struct {
	scope string
	key   string
}

// MemoryService is an in-memory implementation of service.MemoryService.
type MemoryService struct {
	mu      sync.RWMutex
	entries map[memoryKey]service.MemoryEntry
}

// NewMemoryService creates an empty in-memory graph memory.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		entries: make(map[memoryKey]service.MemoryEntry),
	}
}

// Memorize stores the entry, overwriting any previous value for its key.
func (m *MemoryService) Memorize(ctx context.Context, entry service.MemoryEntry) error {
	if entry.Scope == "" {
		entry.Scope = defaultScope
	}
	entry.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey{scope: entry.Scope, key: entry.Key}] = entry
	return nil
}

// Recall returns the entry stored under key and scope, or nothing.
func (m *MemoryService) Recall(ctx context.Context, key, scope string) ([]service.MemoryEntry, error) {
	if scope == "" {
		scope = defaultScope
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.entries[memoryKey{scope: scope, key: key}]; ok {
		return []service.MemoryEntry{entry}, nil
	}
	return nil, nil
}

// Forget removes the entry stored under key and scope.
func (m *MemoryService) Forget(ctx context.Context, key, scope string) error {
	if scope == "" {
		scope = defaultScope
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey{scope: scope, key: key})
	return nil
}
