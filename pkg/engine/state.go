package engine

import "sync"

// StateStore persists which components are installed. Only the installed
// state is persisted; absence of a marker means not started. Failed is a
// transient, in-run status and is never written to the store.
//
// Implementations live in pkg/stores: a sentinel-file store matching the
// classic touch-file convention, and a SQLite store that also keeps run
// history. MemoryStore below backs tests and dry runs.
type StateStore interface {
	// IsInstalled reports whether the component's marker exists.
	IsInstalled(id string) (bool, error)

	// MarkInstalled persists the component's marker.
	MarkInstalled(id string) error

	// ClearInstalled removes the component's marker if present.
	ClearInstalled(id string) error
}

// MemoryStore is a map-backed StateStore.
type MemoryStore struct {
	mu        sync.Mutex
	installed map[string]bool
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{installed: make(map[string]bool)}
}

// IsInstalled implements StateStore.
func (m *MemoryStore) IsInstalled(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installed[id], nil
}

// MarkInstalled implements StateStore.
func (m *MemoryStore) MarkInstalled(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installed[id] = true
	return nil
}

// ClearInstalled implements StateStore.
func (m *MemoryStore) ClearInstalled(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.installed, id)
	return nil
}
