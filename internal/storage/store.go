// Package storage provides the hierarchical document store and similarity indexes.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when nothing is stored at or below a path.
var ErrNotFound = errors.New("document not found")

// Leaf is a single stored JSON value addressed by its full path.
type Leaf struct {
	Path  string
	Value json.RawMessage
}

// Backend is the leaf-level persistence used by Tree.
type Backend interface {
	// GetLeaf returns the value stored exactly at path.
	GetLeaf(ctx context.Context, path string) (json.RawMessage, bool, error)
	// PutLeaf writes a value at path without touching descendants.
	PutLeaf(ctx context.Context, path string, value json.RawMessage) error
	// ReplaceLeaf removes path and its descendants, then writes value at path.
	ReplaceLeaf(ctx context.Context, path string, value json.RawMessage) error
	// ListPrefix returns every leaf whose path starts with prefix.
	ListPrefix(ctx context.Context, prefix string) ([]Leaf, error)
	// DeleteTree removes path and its descendants.
	DeleteTree(ctx context.Context, path string) error
	Close() error
}

// Tree is a path-addressed document store with last-write-wins leaves.
type Tree struct {
	backend Backend
}

// NewTree wraps a backend.
func NewTree(backend Backend) *Tree {
	return &Tree{backend: backend}
}

// Get returns the leaf at path, or all descendants assembled into a JSON object.
func (t *Tree) Get(ctx context.Context, path string) (json.RawMessage, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	value, ok, err := t.backend.GetLeaf(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if ok {
		return value, nil
	}

	leaves, err := t.backend.ListPrefix(ctx, path+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	if len(leaves) == 0 {
		return nil, ErrNotFound
	}
	return assemble(path+"/", leaves)
}

// Set replaces everything at path with value.
func (t *Tree) Set(ctx context.Context, path string, value any) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := t.backend.ReplaceLeaf(ctx, path, raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Push appends value under path with a generated, time-ordered key.
func (t *Tree) Push(ctx context.Context, path string, value any) (string, error) {
	path, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	key, err := NewPushKey()
	if err != nil {
		return "", err
	}
	if err := t.backend.PutLeaf(ctx, path+"/"+key, raw); err != nil {
		return "", fmt.Errorf("failed to push %s: %w", path, err)
	}
	return key, nil
}

// Delete removes path and everything below it.
func (t *Tree) Delete(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := t.backend.DeleteTree(ctx, path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Close releases the backend.
func (t *Tree) Close() error {
	return t.backend.Close()
}

// NewPushKey returns a UUIDv7 string; lexical order follows creation order.
func NewPushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate push key: %w", err)
	}
	return id.String(), nil
}

func cleanPath(path string) (string, error) {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "", fmt.Errorf("path cannot be empty")
	}
	return strings.Join(kept, "/"), nil
}

// assemble nests leaves under prefix into one JSON object.
func assemble(prefix string, leaves []Leaf) (json.RawMessage, error) {
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Path < leaves[j].Path })

	root := map[string]any{}
	for _, leaf := range leaves {
		rel := strings.TrimPrefix(leaf.Path, prefix)
		segments := strings.Split(rel, "/")
		node := root
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				// descendants win over a stale leaf at the same path
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
		last := segments[len(segments)-1]
		if _, isMap := node[last].(map[string]any); isMap {
			continue
		}
		node[last] = leaf.Value
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", prefix, err)
	}
	return raw, nil
}
