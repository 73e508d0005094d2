package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/userstore"
)

func TestProvider_IsEnabled(t *testing.T) {
	t.Run("fully configured google is enabled", func(t *testing.T) {
		p := auth.NewGoogleProvider(auth.ProviderDeps{
			Config: auth.StaticConfig{"google": googleConfig()},
		})
		assert.True(t, p.ValidateConfig())
		assert.True(t, p.IsEnabled())
	})

	t.Run("missing secret disables and warns", func(t *testing.T) {
		log, buf := newTestLogger()
		cfg := googleConfig()
		delete(cfg, auth.KeyClientSecret)

		p := auth.NewGoogleProvider(auth.ProviderDeps{
			Config: auth.StaticConfig{"google": cfg},
			Logger: log,
		})
		assert.False(t, p.IsEnabled())

		var warned bool
		for _, rec := range readRecords(t, buf) {
			if rec["level"] == "WARN" && rec["missing_key"] == auth.KeyClientSecret {
				warned = true
			}
		}
		assert.True(t, warned, "expected a warning naming client_secret")
	})

	t.Run("valid config without enabled flag is disabled", func(t *testing.T) {
		cfg := googleConfig()
		cfg[auth.KeyEnabled] = "false"
		p := auth.NewGoogleProvider(auth.ProviderDeps{Config: auth.StaticConfig{"google": cfg}})
		assert.True(t, p.ValidateConfig())
		assert.False(t, p.IsEnabled())
	})

	t.Run("github does not require redirect", func(t *testing.T) {
		p := auth.NewGitHubProvider(auth.ProviderDeps{Config: auth.StaticConfig{"github": {
			auth.KeyClientID:     "id",
			auth.KeyClientSecret: "secret",
			auth.KeyEnabled:      "yes",
		}}})
		assert.True(t, p.IsEnabled())
		assert.Equal(t, []string{"client_id", "client_secret"}, p.RequiredConfigKeys())
		assert.Equal(t, []string{"redirect", "enabled"}, p.OptionalConfigKeys())
	})

	t.Run("google requires redirect", func(t *testing.T) {
		cfg := googleConfig()
		delete(cfg, auth.KeyRedirect)
		p := auth.NewGoogleProvider(auth.ProviderDeps{Config: auth.StaticConfig{"google": cfg}})
		assert.False(t, p.IsEnabled())
		assert.Equal(t, []string{"client_id", "client_secret", "redirect"}, p.RequiredConfigKeys())
	})
}

func TestProvider_OverridesWin(t *testing.T) {
	cfg := googleConfig()
	cfg[auth.KeyEnabled] = "false"

	p := auth.NewGoogleProvider(auth.ProviderDeps{
		Config:    auth.StaticConfig{"google": cfg},
		Overrides: map[string]string{auth.KeyEnabled: "true", auth.KeyClientID: "override"},
	})
	assert.True(t, p.IsEnabled())
	assert.Equal(t, "override", p.Config().Get(auth.KeyClientID))

	// mutating the returned copy does not leak into the provider
	p.Config()[auth.KeyClientID] = "mutated"
	assert.Equal(t, "override", p.Config().Get(auth.KeyClientID))
}

func TestProvider_DisabledGuard(t *testing.T) {
	client := &mockOAuthClient{}
	p := auth.NewGitHubProvider(auth.ProviderDeps{
		Config: auth.StaticConfig{},
		OAuth:  client,
		Users:  userstore.NewMemory(),
	})

	_, err := p.RedirectURL(context.Background())
	var disabled *auth.ProviderDisabledError
	require.ErrorAs(t, err, &disabled)
	assert.Equal(t, "github", disabled.Name)
	assert.Equal(t, "GitHub", disabled.DisplayName)

	_, err = p.HandleCallback(context.Background(), auth.CallbackParams{Code: "c", State: "s"})
	assert.ErrorAs(t, err, &disabled)

	client.AssertNotCalled(t, "AuthorizationURL", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "ExchangeCallback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProvider_DelegatesToOAuthClient(t *testing.T) {
	client := &mockOAuthClient{}
	p := auth.NewGoogleProvider(auth.ProviderDeps{
		Config: auth.StaticConfig{"google": googleConfig()},
		OAuth:  client,
	})
	ctx := context.Background()

	client.On("AuthorizationURL", ctx, "google", p.Config()).
		Return("https://accounts.google.com/o/oauth2/auth?state=abc", nil).Once()
	url, err := p.RedirectURL(ctx)
	require.NoError(t, err)
	assert.Contains(t, url, "state=abc")

	params := auth.CallbackParams{Code: "code", State: "abc"}
	want := auth.SocialIdentity{ExternalID: "42", Email: "a@b.com"}
	client.On("ExchangeCallback", ctx, "google", p.Config(), params).Return(want, nil).Once()
	got, err := p.HandleCallback(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// collaborator errors pass through unchanged
	exchangeErr := errors.New("network down")
	bad := auth.CallbackParams{Code: "bad", State: "abc"}
	client.On("ExchangeCallback", ctx, "google", p.Config(), bad).Return(auth.SocialIdentity{}, exchangeErr).Once()
	_, err = p.HandleCallback(ctx, bad)
	assert.Equal(t, exchangeErr, err)

	client.AssertExpectations(t)
}
