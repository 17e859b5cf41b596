package stores

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarkerStore persists installed state as one sentinel file per component
// in a state directory, the classic `.NAME_installed` touch-file
// convention. Existence of the file is the sole signal: no content is
// read back.
type MarkerStore struct {
	dir string
}

// NewMarkerStore creates a marker store rooted at dir, creating the
// directory if needed.
func NewMarkerStore(dir string) (*MarkerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("marker store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &MarkerStore{dir: dir}, nil
}

// Dir returns the state directory.
func (m *MarkerStore) Dir() string {
	return m.dir
}

// IsInstalled implements engine.StateStore.
func (m *MarkerStore) IsInstalled(id string) (bool, error) {
	path, err := m.markerPath(id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat marker %s: %w", path, err)
	}
	return true, nil
}

// MarkInstalled implements engine.StateStore.
func (m *MarkerStore) MarkInstalled(id string) error {
	path, err := m.markerPath(id)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write marker %s: %w", path, err)
	}
	return f.Close()
}

// ClearInstalled implements engine.StateStore.
func (m *MarkerStore) ClearInstalled(id string) error {
	path, err := m.markerPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker %s: %w", path, err)
	}
	return nil
}

// markerPath rejects IDs that would escape the state directory.
func (m *MarkerStore) markerPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid component ID %q for marker file", id)
	}
	return filepath.Join(m.dir, fmt.Sprintf(".%s_installed", id)), nil
}
