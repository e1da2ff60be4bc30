// Package memory provides an in-process KV store, used in tests and as a
// fallback when no durable backend is configured.
package memory

import (
	"context"
	"sync"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// KV is an in-memory implementation of domain.KVStore.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV creates an empty in-memory store.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get returns the stored value, or domain.ErrNotFound.
func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of the value.
func (s *KV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Compile-time interface check.
var _ domain.KVStore = (*KV)(nil)
