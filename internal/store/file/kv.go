// Package file persists engine state as a single JSON document on local disk,
// the headless counterpart of the browser's localStorage.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// KV implements domain.KVStore over a JSON file mapping key to raw value.
// The whole document is rewritten on every Set; writes go through a temp file
// and rename so a crash never leaves a half-written state file.
type KV struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewKV opens (or initializes) the store at path. A missing file starts
// empty; a corrupt file is discarded with an error so the caller can decide
// whether to surface it.
func NewKV(path string) (*KV, error) {
	s := &KV{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("filestore: parse %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get returns the stored value, or domain.ErrNotFound.
func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores the value and flushes the document to disk.
func (s *KV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make(json.RawMessage, len(value))
	copy(v, value)
	s.data[key] = v

	return s.flushLocked()
}

func (s *KV) flushLocked() error {
	doc, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".dropsd-state-*")
	if err != nil {
		return fmt.Errorf("filestore: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: replace %s: %w", s.path, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.KVStore = (*KV)(nil)
