// Package memory stores archives and frontier rows in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/crawlhub/internal/batch"
)

// BlobStore keeps objects in a map and emulates prefix listing.
type BlobStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	attrs map[string]batch.ObjectAttrs
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data:  make(map[string][]byte),
		attrs: make(map[string]batch.ObjectAttrs),
	}
}

// Put stores a copy of data unless key already exists.
func (s *BlobStore) Put(_ context.Context, key string, data []byte, attrs batch.ObjectAttrs) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return fmt.Errorf("put %s: %w", key, batch.ErrObjectExists)
	}
	s.data[key] = append([]byte(nil), data...)
	s.attrs[key] = attrs
	return nil
}

// Get returns a copy of the stored object.
func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, batch.ErrBatchNotFound)
	}
	return append([]byte(nil), data...), nil
}

// List returns every key under prefix in lexical order.
func (s *BlobStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListPrefixes returns the distinct sub-prefixes one delimiter below prefix.
func (s *BlobStore) ListPrefixes(_ context.Context, prefix, delimiter string) ([]string, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("delimiter is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		idx := strings.Index(rest, delimiter)
		if idx < 0 {
			continue
		}
		seen[prefix+rest[:idx+len(delimiter)]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Attrs returns the metadata recorded for key.
func (s *BlobStore) Attrs(key string) (batch.ObjectAttrs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.attrs[key]
	return attrs, ok
}
