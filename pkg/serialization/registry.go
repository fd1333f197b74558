package serialization

import (
	"sort"
	"sync"
)

// Factory constructs an uninitialized instance whose state is populated afterwards.
type Factory[T any] func() T

// Registry maps type tags to factories. It is filled before a load starts and
// only read while the load runs.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
	}
}

// Register associates tag with factory.
// If the tag is already registered, the factory is replaced.
func (r *Registry[T]) Register(tag string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Create returns a fresh instance for tag, or an *UnknownTypeError.
func (r *Registry[T]) Create(tag string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, &UnknownTypeError{Tag: tag}
	}
	return factory(), nil
}

// Has reports whether tag is registered.
func (r *Registry[T]) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry[T]) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
