package node

import (
	"fmt"
	"sort"
	"sync"

	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// Factory constructs a node instance for a type label. Built-in node packages
// register factories at init; the loader resolves persisted type labels
// through the registry.
type Factory func(id, name string, rt *Runtime) *Node

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a factory for the provided node type label.
func Register(typeLabel string, f Factory) error {
	if f == nil {
		return synerrors.NewRegistryError(typeLabel, fmt.Errorf("factory is nil"))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[typeLabel]; exists {
		return synerrors.NewRegistryError(typeLabel, fmt.Errorf("node type already registered"))
	}

	registry[typeLabel] = f
	return nil
}

// MustRegister registers a factory and panics on conflict. Built-in node
// packages call it from init, where a conflict is a programming error.
func MustRegister(typeLabel string, f Factory) {
	if err := Register(typeLabel, f); err != nil {
		panic(err)
	}
}

// Lookup retrieves a factory by type label.
func Lookup(typeLabel string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[typeLabel]
	if !ok {
		return nil, synerrors.NewRegistryError(typeLabel, fmt.Errorf("no node type registered"))
	}

	return f, nil
}

// RegisteredTypes returns the known type labels, sorted.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ResetRegistry clears registrations (for tests).
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Factory)
}
