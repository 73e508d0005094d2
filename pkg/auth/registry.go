package auth

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bizhub/socialauth/pkg/logger"
)

// ProviderFactory constructs a provider from its collaborators.
type ProviderFactory func(ProviderDeps) Provider

// ProviderStatus is a diagnostic snapshot of one registered provider.
type ProviderStatus struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Enabled        bool     `json:"enabled"`
	Configured     bool     `json:"configured"`
	RequiredConfig []string `json:"required_config"`
	OptionalConfig []string `json:"optional_config"`
}

// Registry maps provider names to factories and caches at most one
// constructed instance per name. Returned providers are shared.
type Registry struct {
	deps      ProviderDeps
	overrides map[string]map[string]string

	mu        sync.RWMutex
	order     []string
	factories map[string]ProviderFactory
	instances map[string]Provider
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithoutDefaults starts the registry with an empty provider table.
func WithoutDefaults() RegistryOption {
	return func(r *Registry) {
		r.order = nil
		clear(r.factories)
	}
}

// WithProvider registers an extra factory at construction.
func WithProvider(name string, factory ProviderFactory) RegistryOption {
	return func(r *Registry) {
		r.setFactory(name, factory)
	}
}

// WithOverrides sets configuration values for name that take precedence over
// the configuration source.
func WithOverrides(name string, values map[string]string) RegistryOption {
	return func(r *Registry) {
		r.overrides[name] = Merge(r.overrides[name], values)
	}
}

// NewRegistry returns a registry with the google and github providers.
func NewRegistry(deps ProviderDeps, opts ...RegistryOption) *Registry {
	r := &Registry{
		deps:      deps.withDefaults(),
		overrides: map[string]map[string]string{},
		factories: map[string]ProviderFactory{},
		instances: map[string]Provider{},
	}
	r.setFactory(ProviderGoogle, NewGoogleProvider)
	r.setFactory(ProviderGitHub, NewGitHubProvider)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Make returns the cached provider for name, constructing it on first use.
func (r *Registry) Make(name string) (Provider, error) {
	r.mu.RLock()
	p, ok := r.instances[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[name]; ok {
		return p, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}

	deps := r.deps
	deps.Overrides = r.overrides[name]
	p = factory(deps)
	if p == nil {
		return nil, fmt.Errorf("provider factory %q returned nil", name)
	}
	r.instances[name] = p
	return p, nil
}

// AvailableProviders returns every registered name in registration order,
// regardless of enablement.
func (r *Registry) AvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// EnabledProviders returns the providers whose IsEnabled is true.
func (r *Registry) EnabledProviders() map[string]Provider {
	out := map[string]Provider{}
	for _, name := range r.AvailableProviders() {
		p, err := r.Make(name)
		if err != nil {
			continue
		}
		if p.IsEnabled() {
			out[name] = p
		}
	}
	return out
}

// HasProvider reports whether name is registered.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// IsProviderEnabled reports whether name is registered and enabled.
func (r *Registry) IsProviderEnabled(name string) bool {
	if !r.HasProvider(name) {
		return false
	}
	p, err := r.Make(name)
	return err == nil && p.IsEnabled()
}

// RegisterProvider adds or replaces the factory for name and evicts its cached
// instance. kind must be a ProviderFactory or a func(ProviderDeps) Provider;
// anything else returns *InvalidProviderTypeError and leaves the table unchanged.
func (r *Registry) RegisterProvider(name string, kind any) error {
	var factory ProviderFactory
	switch f := kind.(type) {
	case ProviderFactory:
		factory = f
	case func(ProviderDeps) Provider:
		factory = f
	}
	if factory == nil || name == "" {
		return &InvalidProviderTypeError{Name: name, Type: fmt.Sprintf("%T", kind)}
	}

	r.mu.Lock()
	r.setFactory(name, factory)
	delete(r.instances, name)
	r.mu.Unlock()

	r.deps.Logger.Info("registered auth provider", logger.Component("auth"), logger.Provider(name))
	return nil
}

// ProviderStatus returns a snapshot of every registered provider.
func (r *Registry) ProviderStatus() map[string]ProviderStatus {
	out := map[string]ProviderStatus{}
	for _, name := range r.AvailableProviders() {
		p, err := r.Make(name)
		if err != nil {
			r.deps.Logger.Warn("provider status unavailable",
				logger.Component("auth"), logger.Provider(name), logger.Error(err))
			continue
		}
		configured := p.ValidateConfig()
		out[name] = ProviderStatus{
			Name:           p.Name(),
			DisplayName:    p.DisplayName(),
			Enabled:        configured && p.Config().Bool(KeyEnabled),
			Configured:     configured,
			RequiredConfig: p.RequiredConfigKeys(),
			OptionalConfig: p.OptionalConfigKeys(),
		}
	}
	return out
}

// ClearCache drops every cached provider so the next Make reads the
// configuration again.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	clear(r.instances)
	r.mu.Unlock()
	r.deps.Logger.Debug("provider cache cleared", logger.Component("auth"))
}

// setFactory must be called with r.mu held or before r is shared.
func (r *Registry) setFactory(name string, factory ProviderFactory) {
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}
