package forge

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider identifiers to concrete backends. The dispatcher
// resolves every ResourceKey's Provider field through it, which keeps
// backend selection out of the reducer and cache entirely.
type Registry struct {
	mu     sync.RWMutex
	forges map[string]Forge
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{forges: map[string]Forge{}}
}

// Register installs a backend. Returns an error if the ID already exists.
func (r *Registry) Register(id string, f Forge) error {
	if id == "" {
		return fmt.Errorf("forge: provider id is required")
	}
	if f == nil {
		return fmt.Errorf("forge: backend is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.forges[id]; exists {
		return fmt.Errorf("forge: %s already registered", id)
	}
	r.forges[id] = f
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, f Forge) {
	if err := r.Register(id, f); err != nil {
		panic(err)
	}
}

// Resolve returns the backend for a provider identifier.
func (r *Registry) Resolve(id string) (Forge, error) {
	r.mu.RLock()
	f, ok := r.forges[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("forge: unknown provider %s", id)
	}
	return f, nil
}

// IDs returns a sorted list of registered provider identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.forges))
	for id := range r.forges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
