// Package registry keeps named shared instances, such as MongoDB collections,
// behind a read-write lock.
package registry

import (
	"fmt"
	"sync"

	"optometry_report/internal/common"
)

// Registry is a concurrency-safe map of named items.
//
// Example:
//
//	collections := NewRegistry[*mongo.Collection]()
//	collections.Register("reports", db.Collection("reports"))
//	if coll, ok := collections.Get("reports"); ok {
//	    ...
//	}
type Registry[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

// Register stores item under name, replacing any previous item.
// isNew is false when an item was replaced.
func (r *Registry[T]) Register(name string, item T) (isNew bool, err error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.items[name]
	r.items[name] = item
	return !exists, nil
}

// Get returns the item stored under name.
func (r *Registry[T]) Get(name string) (item T, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists = r.items[name]
	return item, exists
}
