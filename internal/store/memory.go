package store

import (
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps artifacts in memory. Use in tests.
type MemoryStore struct {
	name string

	mu      sync.Mutex
	objects map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name, objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

// Get returns a stored object's bytes, or nil when absent.
func (s *MemoryStore) Get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

// Keys returns the stored object keys in unspecified order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

func (s *MemoryStore) ValidateSetup() error { return nil }
