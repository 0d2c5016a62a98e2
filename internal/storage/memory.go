package storage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryBackend keeps leaves in a map. It is used in tests and for local runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	leaves map[string]json.RawMessage
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{leaves: make(map[string]json.RawMessage)}
}

func (b *MemoryBackend) GetLeaf(_ context.Context, path string) (json.RawMessage, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.leaves[path]
	return value, ok, nil
}

func (b *MemoryBackend) PutLeaf(_ context.Context, path string, value json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaves[path] = append(json.RawMessage(nil), value...)
	return nil
}

func (b *MemoryBackend) ReplaceLeaf(_ context.Context, path string, value json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteTreeLocked(path)
	b.leaves[path] = append(json.RawMessage(nil), value...)
	return nil
}

func (b *MemoryBackend) ListPrefix(_ context.Context, prefix string) ([]Leaf, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var leaves []Leaf
	for path, value := range b.leaves {
		if strings.HasPrefix(path, prefix) {
			leaves = append(leaves, Leaf{Path: path, Value: value})
		}
	}
	return leaves, nil
}

func (b *MemoryBackend) DeleteTree(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteTreeLocked(path)
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}

func (b *MemoryBackend) deleteTreeLocked(path string) {
	delete(b.leaves, path)
	for p := range b.leaves {
		if strings.HasPrefix(p, path+"/") {
			delete(b.leaves, p)
		}
	}
}
