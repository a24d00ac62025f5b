package model

import (
	"fmt"
	"sync"
)

// Registry holds named model types, for example the types compiled from a
// manifest. Names and collections are unique within a registry, so two
// registered types never share a storage partition.
type Registry struct {
	mu           sync.RWMutex
	byName       map[string]*Type
	byCollection map[string]*Type
	order        []*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:       make(map[string]*Type),
		byCollection: make(map[string]*Type),
	}
}

// Register adds t.
func (r *Registry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[t.Name()]; ok {
		return fmt.Errorf("register %s: %w", t.Name(), ErrDuplicateType)
	}
	if other, ok := r.byCollection[t.Collection()]; ok {
		return fmt.Errorf("register %s: collection %q already used by %s: %w",
			t.Name(), t.Collection(), other.Name(), ErrDuplicateType)
	}

	r.byName[t.Name()] = t
	r.byCollection[t.Collection()] = t
	r.order = append(r.order, t)
	return nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
