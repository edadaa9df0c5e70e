package registry

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when an id is not in the registry
var ErrNotFound = errors.New("item not found")

// Registry is an in memory structure to hold a map of objects by id.
// ptyrun uses registries to track live pty sessions
type Registry[T any] struct {
	data     map[int]T
	latestID int

	mu sync.RWMutex
}

// NewRegistry creates a new registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		data:     make(map[int]T),
		latestID: 0,
	}
}

// Add adds an item to the registry in a thread safe way and returns its id.
// Ids are never reused.
func (r *Registry[T]) Add(t T) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latestID++
	r.data[r.latestID] = t
	return r.latestID
}

// GetAll returns a snapshot of the registry contents
func (r *Registry[T]) GetAll() map[int]T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]T, len(r.data))
	for id, v := range r.data {
		out[id] = v
	}
	return out
}

// GetByID returns an item given its registry ID
func (r *Registry[T]) GetByID(id int) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.data[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return val, nil
}

// Len returns the number of items
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Delete removes an item from registry
func (r *Registry[T]) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}
