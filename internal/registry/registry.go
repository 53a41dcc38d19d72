// Package registry implements the process-wide component registries: a
// mapping from a type-tag string to a Builder that constructs a
// component from a configuration fragment.
//
// Registries are read-mostly: written once during process initialisation
// and read thereafter, so a simple RWMutex suffices.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ark-flow/arkflow/internal/component"
)

// Registry maps type-tags to Builders for one component kind.
type Registry[T any] struct {
	mu       sync.RWMutex
	builders map[string]component.Builder[T]
}

// New creates an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{builders: make(map[string]component.Builder[T])}
}

// Register adds a Builder under typeTag. Double-registration of the same
// tag is a fatal configuration error.
func (r *Registry[T]) Register(typeTag string, b component.Builder[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[typeTag]; exists {
		return fmt.Errorf("registry: type tag %q already registered", typeTag)
	}
	r.builders[typeTag] = b
	return nil
}

// MustRegister is Register but panics on failure, for use in init()
// functions where a collision is a programmer error.
func (r *Registry[T]) MustRegister(typeTag string, b component.Builder[T]) {
	if err := r.Register(typeTag, b); err != nil {
		panic(err)
	}
}

// Build looks up typeTag and constructs a component from rawConfig.
func (r *Registry[T]) Build(typeTag string, rawConfig component.Decoder) (T, error) {
	r.mu.RLock()
	b, ok := r.builders[typeTag]
	var known []string
	if !ok {
		known = r.knownLocked()
	}
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("registry: unknown type tag %q (known: %v)", typeTag, known)
	}
	return b(rawConfig)
}

// Known returns the registered type tags, sorted.
func (r *Registry[T]) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownLocked()
}

func (r *Registry[T]) knownLocked() []string {
	out := make([]string, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
