// Package provider adapts the gateway's canonical chat types to each
// supported LLM backend. One adapter per backend, a registry to resolve
// them by id, and per-backend wire conversions kept in the adapter files.
package provider

import (
	"fmt"
	"sort"

	"parley/config"
	"parley/model"
)

// Registry holds the configured provider adapters keyed by their public id:
// "ollama", "openai", "azure_openai", "anthropic".
//
// Every supported backend is registered at startup whether or not its
// credentials are present. Resolution is a pure lookup; a provider with
// missing credentials resolves fine and reports the missing key when used.
type Registry struct {
	providers map[string]model.Provider
}

// NewRegistry builds the registry from configuration.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	ollama, err := NewOllamaProvider(cfg.Providers.Ollama.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to configure Ollama provider: %w", err)
	}

	return &Registry{
		providers: map[string]model.Provider{
			"ollama": ollama,
			"openai": NewOpenAIProvider(
				cfg.Providers.OpenAI.BaseURL,
				cfg.Providers.OpenAI.APIKey,
			),
			"azure_openai": NewAzureOpenAIProvider(
				cfg.Providers.AzureOpenAI.Endpoint,
				cfg.Providers.AzureOpenAI.APIKey,
				cfg.Providers.AzureOpenAI.APIVersion,
			),
			"anthropic": NewAnthropicProvider(
				cfg.Providers.Anthropic.BaseURL,
				cfg.Providers.Anthropic.APIKey,
			),
		},
	}, nil
}

// NewRegistryWith builds a registry from explicit providers. Tests use this
// to install mocks.
func NewRegistryWith(providers map[string]model.Provider) *Registry {
	return &Registry{providers: providers}
}

// Resolve looks up a provider by id. An unknown id is a caller error, never
// a server fault.
func (r *Registry) Resolve(id string) (model.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, &model.ClientInputError{
			Reason: fmt.Sprintf("'%s' is an invalid provider.", id),
		}
	}
	return p, nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
