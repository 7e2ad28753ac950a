package adapter

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownService is returned for services with no registered adapter.
var ErrUnknownService = errors.New("unsupported service")

// Factory builds an adapter for a service from shared deps.
type Factory func(service string, deps Deps) Adapter

// Registry maps service names to adapter factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in nginx adapters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("nginxsite", func(service string, deps Deps) Adapter { return NewBundle(service, deps) })
	r.MustRegister("nginxmain", func(service string, deps Deps) Adapter { return NewWholeFile(service, deps) })
	return r
}

// Register adds a factory. Registering the same service twice is an error.
func (r *Registry) Register(service string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[service]; exists {
		return fmt.Errorf("adapter for service %s already registered", service)
	}
	r.factories[service] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(service string, factory Factory) {
	if err := r.Register(service, factory); err != nil {
		panic(err)
	}
}

// Get builds the adapter for service.
func (r *Registry) Get(service string, deps Deps) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[service]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	return factory(service, deps), nil
}

// List returns the registered service names in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
