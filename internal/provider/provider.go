// Package provider hosts the adapter registration table. Each backend
// package registers a factory from its init function; the composition root
// blank-imports the backends it wants and builds the adapter set once.
// Adding a fifth backend is a single Register call, not a new switch arm.
package provider

import (
	"fmt"
	"sync"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
)

// Factory builds an adapter bound to a credential store.
type Factory func(creds ports.CredentialStore) ports.Adapter

var (
	mu        sync.RWMutex
	factories = make(map[domain.ProviderID]Factory)
)

// Register makes a provider factory available to the system.
func Register(id domain.ProviderID, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[id]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", id))
	}
	factories[id] = f
}

// Get retrieves the factory for one provider.
func Get(id domain.ProviderID) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[id]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for: %s", id)
	}
	return f, nil
}

// Build instantiates every registered adapter against the given credential
// store, keyed by provider id.
func Build(creds ports.CredentialStore) map[domain.ProviderID]ports.Adapter {
	mu.RLock()
	defer mu.RUnlock()

	adapters := make(map[domain.ProviderID]ports.Adapter, len(factories))
	for id, f := range factories {
		adapters[id] = f(creds)
	}
	return adapters
}
