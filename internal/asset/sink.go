package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Sink stores asset bytes under a slash-separated key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// DirSink writes objects as files below a root directory.
type DirSink struct {
	root string
}

// NewDirSink creates a sink rooted at dir. The directory is created on
// first write.
func NewDirSink(dir string) *DirSink {
	return &DirSink{root: dir}
}

// Root returns the root directory.
func (s *DirSink) Root() string {
	return s.root
}

// Put writes data to root/key, creating parent directories.
func (s *DirSink) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	path := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// MemorySink keeps objects in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put stores a copy of data under key.
func (s *MemorySink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(data)
	s.types[key] = contentType
	return nil
}

// Get returns the object stored under key and its content type.
func (s *MemorySink) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return slices.Clone(data), s.types[key], nil
}

// Keys returns all keys in sorted order.
func (s *MemorySink) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
