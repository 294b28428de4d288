package provider

import (
	"fmt"
	"sync"

	"github.com/avelikov/echogate/internal/config"
	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/logging"
)

// Registry maps provider names to adapters. Provider selection is always
// explicit: there is no model-to-provider inference and no fallback.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		log:      log.Sub("provider.registry"),
	}
}

// Register adds an adapter under the given provider name.
func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
	r.log.Info().Str("provider", name).Msg("registered provider")
}

// Resolve returns the adapter for the given provider name.
func (r *Registry) Resolve(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no provider registered under %q", name)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a registry from provider configuration.
// Adapters are registered even without an API key; the key check happens
// per request so a missing key surfaces as a configuration error, not a
// missing provider.
func NewRegistryFromConfig(cfg config.Config, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	for _, name := range config.KnownProviders {
		pc, _ := cfg.Provider(name)
		switch name {
		case domain.ProviderGemini:
			reg.Register(name, NewGemini(pc.APIKey, pc.Model))
		case domain.ProviderMistral:
			reg.Register(name, NewMistral(pc.APIKey, pc.Model))
		case domain.ProviderHuggingFace:
			reg.Register(name, NewHuggingFace(pc.APIKey, pc.Model))
		}
	}
	return reg
}
