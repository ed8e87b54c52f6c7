package snapshot

import (
	"fmt"
	"sync"

	"ffctl/internal/ff"
)

// MemoryStore keeps snapshots in memory. Use in tests.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Path(name string) string {
	return "memory://" + name
}

func (s *MemoryStore) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}

func (s *MemoryStore) ReadRaw(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	if !ok {
		return nil, notFound(s.Path(name))
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) ReadJSON(name string, v any) error {
	data, err := s.ReadRaw(name)
	if err != nil {
		return err
	}
	if err := decodeJSON(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", s.Path(name), err)
	}
	return nil
}

func (s *MemoryStore) WriteJSON(name string, v any) (*ff.SnapshotInfo, error) {
	data, err := encodeJSON(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}
	return s.WriteRaw(name, data)
}

func (s *MemoryStore) WriteRaw(name string, data []byte) (*ff.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	return info(name, data), nil
}

// String returns the named file as text, or "" if absent.
func (s *MemoryStore) String(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.files[name])
}

var _ ff.SnapshotStore = (*MemoryStore)(nil)
