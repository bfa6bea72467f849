package flux

import (
	"fmt"
	"slices"
	"sync"
)

// Registry looks up Flux instances by name.
//
// There is no package-level registry: create one at startup, pass it to the
// code that needs lookups, and Reset it on teardown.
//
// Example:
//
//	reg := flux.NewRegistry()
//	defer reg.Reset()
//
//	if err := reg.Add(flux.New(flux.WithName("app"))); err != nil {
//	    return err
//	}
//	f, ok := reg.Get("app")
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Flux
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Flux)}
}

// Add registers f under f.Name().
func (r *Registry) Add(f *Flux) error {
	if f == nil {
		return fmt.Errorf("%w: nil instance", ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[f.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, f.Name())
	}
	r.instances[f.Name()] = f
	return nil
}

// Get returns the instance registered under name.
func (r *Registry) Get(name string) (*Flux, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.instances[name]
	return f, ok
}

// Remove drops the instance registered under name.
// Returns ErrNotFound if there is none.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[name]; !ok {
		return fmt.Errorf("%w: instance %s", ErrNotFound, name)
	}
	delete(r.instances, name)
	return nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reset removes every instance.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.instances = make(map[string]*Flux)
	r.mu.Unlock()
}
