// Package backend selects and constructs a table storage backend from
// configuration. Each kind registers a Factory; New builds the backend named
// by Config.Kind.
//
//	cfg, err := backend.LoadConfig("storage.json")
//	st, err := backend.New(cfg, backend.Deps{FatalHandler: onFatal})
package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/remote"
	"github.com/tailored-agentic-units/storageproxy/table"
)

// Deps are the collaborators a factory may wire into the backend it builds.
// Every field is optional.
type Deps struct {
	Transport    remote.Transport
	Observer     observability.Observer
	FatalHandler remote.FatalHandler
}

// Factory builds a backend from configuration.
type Factory func(cfg *Config, deps Deps) (table.Storage, error)

type registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

var register = &registry{
	factories: map[string]Factory{
		KindRemote: newRemote,
		KindLocal:  newLocal,
	},
}

// Register adds a new backend kind.
// Returns ErrAlreadyExists if the kind is already registered.
// Use Replace to swap an existing factory.
func Register(kind string, factory Factory) error {
	if kind == "" {
		return ErrEmptyKind
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.factories[kind]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, kind)
	}

	register.factories[kind] = factory
	return nil
}

// Replace swaps the factory of an existing kind.
// Returns ErrNotFound if the kind is not registered.
func Replace(kind string, factory Factory) error {
	if kind == "" {
		return ErrEmptyKind
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.factories[kind]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, kind)
	}

	register.factories[kind] = factory
	return nil
}

// Get retrieves the factory for kind.
func Get(kind string) (Factory, bool) {
	register.mu.RLock()
	defer register.mu.RUnlock()

	factory, exists := register.factories[kind]
	return factory, exists
}

// List returns the registered kinds in sorted order.
func List() []string {
	register.mu.RLock()
	defer register.mu.RUnlock()

	kinds := make([]string, 0, len(register.factories))
	for kind := range register.factories {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// New builds the backend named by cfg.Kind.
func New(cfg *Config, deps Deps) (table.Storage, error) {
	factory, exists := Get(cfg.Kind)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.Kind)
	}

	st, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Kind, err)
	}
	return st, nil
}
