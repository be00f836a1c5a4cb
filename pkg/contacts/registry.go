package contacts

import (
	"fmt"
	"sync"

	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Registry maps provider keys to source factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a provider key.
func (r *Registry) Register(provider string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
}

// SourceFor builds a Source for the account's provider.
func (r *Registry) SourceFor(account *models.ExternalAccount) (Source, error) {
	r.mu.RLock()
	factory, ok := r.factories[account.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no contact source registered for provider %q", account.Provider)
	}
	return factory(account)
}
