package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory creates a provider from configuration.
type Factory func(config Config) (IdentityProvider, error)

// Registry manages provider factories by type.
type Registry struct {
	mu        sync.RWMutex
	factories map[Type]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Type]Factory),
	}
}

// Register adds a factory for a provider type.
func (r *Registry) Register(t Type, factory Factory) error {
	if t == "" || factory == nil {
		return errors.New("provider: invalid registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[t]; exists {
		return fmt.Errorf("provider: %q already registered", t)
	}

	r.factories[t] = factory
	return nil
}

// New instantiates a provider of the given type.
func (r *Registry) New(t Type, config Config) (IdentityProvider, error) {
	r.mu.RLock()
	factory, ok := r.factories[t]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, t)
	}

	return factory(config)
}

// Types returns the registered provider types, sorted.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// DefaultRegistry holds the built-in provider factories.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register(TypeCognito, func(config Config) (IdentityProvider, error) {
		return NewCognitoProvider(CognitoConfig{Config: config})
	})
}

// New instantiates a provider from the default registry.
func New(t Type, config Config) (IdentityProvider, error) {
	return DefaultRegistry.New(t, config)
}
