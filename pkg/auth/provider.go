package auth

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/bizhub/socialauth/pkg/logger"
)

// Provider is one external identity service and the logic that reconciles its
// identities with local users.
type Provider interface {
	Name() string
	DisplayName() string
	// IsEnabled reports whether the configuration is valid and explicitly enabled.
	IsEnabled() bool
	// ValidateConfig reports whether every required key is present and
	// non-empty, logging a warning that names the first missing key.
	ValidateConfig() bool
	RequiredConfigKeys() []string
	OptionalConfigKeys() []string
	// Config returns a copy of the merged configuration.
	Config() ProviderConfig

	RedirectURL(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, params CallbackParams) (SocialIdentity, error)
	FindOrCreateUser(ctx context.Context, identity SocialIdentity) (*User, error)
}

var (
	defaultRequiredKeys = []string{KeyClientID, KeyClientSecret}
	defaultOptionalKeys = []string{KeyRedirect, KeyEnabled}
)

// ProviderDeps are the collaborators handed to a provider factory.
type ProviderDeps struct {
	Config    ConfigSource
	Overrides map[string]string
	OAuth     OAuthClient
	Users     UserDirectory
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d ProviderDeps) withDefaults() ProviderDeps {
	if d.Config == nil {
		d.Config = StaticConfig{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ProviderSpec describes the static identity of a provider built on BaseProvider.
type ProviderSpec struct {
	Name         string
	DisplayName  string
	RequiredKeys []string // defaults to client_id, client_secret
	OptionalKeys []string // defaults to redirect, enabled
}

// BaseProvider implements the parts of Provider shared by every variant.
// Variants differ only in their spec and their AccountHooks.
type BaseProvider struct {
	spec   ProviderSpec
	cfg    ProviderConfig
	oauth  OAuthClient
	users  UserDirectory
	hooks  AccountHooks
	logger *slog.Logger
}

// NewBaseProvider merges the configuration of spec.Name from deps.Config with
// deps.Overrides, overrides winning. A nil hooks uses NewSocialAccounts with
// every provider email trusted.
func NewBaseProvider(spec ProviderSpec, deps ProviderDeps, hooks AccountHooks) *BaseProvider {
	deps = deps.withDefaults()
	if len(spec.RequiredKeys) == 0 {
		spec.RequiredKeys = defaultRequiredKeys
	}
	if len(spec.OptionalKeys) == 0 {
		spec.OptionalKeys = defaultOptionalKeys
	}
	if spec.DisplayName == "" {
		spec.DisplayName = spec.Name
	}
	log := deps.Logger.With(logger.Component("auth"), logger.Provider(spec.Name))
	if hooks == nil {
		hooks = NewSocialAccounts(spec.Name, deps.Users, log, deps.Now, nil)
	}
	return &BaseProvider{
		spec:   spec,
		cfg:    Merge(deps.Config.ProviderConfig(spec.Name), deps.Overrides),
		oauth:  deps.OAuth,
		users:  deps.Users,
		hooks:  hooks,
		logger: log,
	}
}

func (p *BaseProvider) Name() string        { return p.spec.Name }
func (p *BaseProvider) DisplayName() string { return p.spec.DisplayName }

func (p *BaseProvider) RequiredConfigKeys() []string { return slices.Clone(p.spec.RequiredKeys) }
func (p *BaseProvider) OptionalConfigKeys() []string { return slices.Clone(p.spec.OptionalKeys) }

func (p *BaseProvider) Config() ProviderConfig { return Merge(p.cfg, nil) }

func (p *BaseProvider) ValidateConfig() bool {
	for _, key := range p.spec.RequiredKeys {
		if p.cfg.Get(key) == "" {
			p.logger.Warn("provider configuration incomplete", slog.String("missing_key", key))
			return false
		}
	}
	return true
}

func (p *BaseProvider) IsEnabled() bool {
	return p.ValidateConfig() && p.cfg.Bool(KeyEnabled)
}

func (p *BaseProvider) RedirectURL(ctx context.Context) (string, error) {
	if !p.IsEnabled() {
		return "", p.disabled()
	}
	p.logger.InfoContext(ctx, "building authorization url")
	return p.oauth.AuthorizationURL(ctx, p.spec.Name, p.Config())
}

func (p *BaseProvider) HandleCallback(ctx context.Context, params CallbackParams) (SocialIdentity, error) {
	if !p.IsEnabled() {
		return SocialIdentity{}, p.disabled()
	}
	p.logger.InfoContext(ctx, "handling oauth callback")
	return p.oauth.ExchangeCallback(ctx, p.spec.Name, p.Config(), params)
}

func (p *BaseProvider) FindOrCreateUser(ctx context.Context, identity SocialIdentity) (*User, error) {
	return FindOrCreateUser(ctx, p.hooks, p.users, identity)
}

func (p *BaseProvider) disabled() error {
	return &ProviderDisabledError{Name: p.spec.Name, DisplayName: p.spec.DisplayName}
}
