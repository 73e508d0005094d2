package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/logger"
)

// ProfileResolver knows one provider's OAuth endpoints and how to turn an
// access token into a SocialIdentity.
type ProfileResolver interface {
	Endpoint() oauth2.Endpoint
	DefaultScopes() []string
	Resolve(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (auth.SocialIdentity, error)
}

// Client implements auth.OAuthClient on top of golang.org/x/oauth2.
type Client struct {
	states     StateStore
	resolvers  map[string]ProfileResolver
	stateTTL   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithResolver registers or replaces the resolver for provider.
func WithResolver(provider string, r ProfileResolver) Option {
	return func(c *Client) { c.resolvers[provider] = r }
}

// WithStateTTL sets how long a redirect may stay pending. Default 10 minutes.
func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.stateTTL = ttl
		}
	}
}

// WithHTTPClient sets the client used for token exchange and profile calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client with the google and github resolvers registered.
func NewClient(states StateStore, opts ...Option) *Client {
	c := &Client{
		states:     states,
		resolvers:  map[string]ProfileResolver{},
		stateTTL:   10 * time.Minute,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Discard(),
	}
	c.resolvers[auth.ProviderGitHub] = NewGitHubResolver()
	for _, opt := range opts {
		opt(c)
	}
	// google needs the HTTP client for key fetching, so it is built last
	if _, ok := c.resolvers[auth.ProviderGoogle]; !ok {
		c.resolvers[auth.ProviderGoogle] = NewGoogleResolver(WithGoogleHTTPClient(c.httpClient))
	}
	return c
}

// AuthorizationURL stores a fresh state and PKCE verifier and returns the URL
// the browser must be redirected to.
func (c *Client) AuthorizationURL(ctx context.Context, provider string, cfg auth.ProviderConfig) (string, error) {
	r, ok := c.resolvers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	state, err := generateState()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()
	if err := c.states.Save(ctx, state, PendingAuth{Provider: provider, Verifier: verifier}, c.stateTTL); err != nil {
		return "", err
	}

	return c.config(r, cfg).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// ExchangeCallback redeems the state, exchanges the code and resolves the
// profile. Unknown, reused or foreign states yield ErrStateMismatch.
func (c *Client) ExchangeCallback(ctx context.Context, provider string, cfg auth.ProviderConfig, params auth.CallbackParams) (auth.SocialIdentity, error) {
	r, ok := c.resolvers[provider]
	if !ok {
		return auth.SocialIdentity{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	if params.State == "" {
		return auth.SocialIdentity{}, fmt.Errorf("%w: empty state", ErrStateMismatch)
	}
	pending, err := c.states.Consume(ctx, params.State)
	if errors.Is(err, ErrStateNotFound) {
		return auth.SocialIdentity{}, fmt.Errorf("%w: %w", ErrStateMismatch, err)
	}
	if err != nil {
		return auth.SocialIdentity{}, err
	}
	if pending.Provider != provider {
		return auth.SocialIdentity{}, fmt.Errorf("%w: state issued for %s", ErrStateMismatch, pending.Provider)
	}

	if params.Error != "" {
		return auth.SocialIdentity{}, fmt.Errorf("%w: provider returned %s: %s", ErrExchangeFailed, params.Error, params.ErrorDescription)
	}
	if params.Code == "" {
		return auth.SocialIdentity{}, fmt.Errorf("%w: missing code", ErrExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	conf := c.config(r, cfg)

	tok, err := conf.Exchange(ctx, params.Code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		c.logger.WarnContext(ctx, "oauth code exchange failed",
			logger.Component("oauth"), logger.Provider(provider), logger.Error(err))
		return auth.SocialIdentity{}, errors.Join(ErrExchangeFailed, err)
	}

	identity, err := r.Resolve(ctx, conf, tok)
	if err != nil {
		return auth.SocialIdentity{}, err
	}
	return identity, nil
}

func (c *Client) config(r ProfileResolver, cfg auth.ProviderConfig) *oauth2.Config {
	scopes := cfg.Scopes()
	if len(scopes) == 0 {
		scopes = r.DefaultScopes()
	}
	return &oauth2.Config{
		ClientID:     cfg.Get(auth.KeyClientID),
		ClientSecret: cfg.Get(auth.KeyClientSecret),
		RedirectURL:  cfg.Get(auth.KeyRedirect),
		Scopes:       scopes,
		Endpoint:     r.Endpoint(),
	}
}

var _ auth.OAuthClient = (*Client)(nil)
