package store

import "sync"

// Memory is the tier-1 cache: a process-lifetime table keyed by dataset id,
// cleared only by process restart. Ingestion writes for the same id are
// serialized by the caller; the lock here covers concurrent readers against
// a writer for different ids.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(id string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

// Put inserts or replaces the entry for the id (last-write-wins, no
// versioning).
func (m *Memory) Put(id string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = e
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
