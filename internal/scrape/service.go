// Package scrape fetches a URL's main content for submission pre-fill. The
// result is advisory: failures surface to the caller and are never retried,
// and nothing in the tracking pipeline depends on a successful scrape.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Result is the pre-fill payload for a scraped URL.
type Result struct {
	Markdown    string `json:"md_content"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Provider fetches and extracts one URL.
type Provider interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}

// Registry stores scrape providers and resolves a default provider.
type Registry struct {
	providers       map[string]Provider
	defaultProvider string
}

func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		providers:       make(map[string]Provider),
		defaultProvider: normalizeProviderName(defaultProvider),
	}
}

// Register adds one provider.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	if r.defaultProvider == "" {
		r.defaultProvider = name
	}
	return nil
}

// Provider resolves a provider by name. Empty names use the default.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil || len(r.providers) == 0 {
		return nil, fmt.Errorf("no scrape providers are registered")
	}

	resolved := normalizeProviderName(name)
	if resolved == "" {
		resolved = r.defaultProvider
	}
	if provider, ok := r.providers[resolved]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("scrape provider %q is not registered (available: %s)", resolved, strings.Join(r.ProviderNames(), ", "))
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
