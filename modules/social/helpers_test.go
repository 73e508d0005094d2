package social_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/modules/social"
	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/session"
	"github.com/bizhub/socialauth/pkg/userstore"
)

type mockOAuthClient struct {
	mock.Mock
}

func (m *mockOAuthClient) AuthorizationURL(ctx context.Context, provider string, cfg auth.ProviderConfig) (string, error) {
	args := m.Called(ctx, provider, cfg)
	return args.String(0), args.Error(1)
}

func (m *mockOAuthClient) ExchangeCallback(ctx context.Context, provider string, cfg auth.ProviderConfig, params auth.CallbackParams) (auth.SocialIdentity, error) {
	args := m.Called(ctx, provider, cfg, params)
	return args.Get(0).(auth.SocialIdentity), args.Error(1)
}

// flakyUsers fails last-login updates when failLastLogin is set.
type flakyUsers struct {
	*userstore.Memory
	failLastLogin bool
}

func (f *flakyUsers) Update(ctx context.Context, id uuid.UUID, fields auth.UserFields) (*auth.User, error) {
	if f.failLastLogin && fields.LastLoginAt != nil {
		return nil, errors.New("db down")
	}
	return f.Memory.Update(ctx, id, fields)
}

type env struct {
	flow     *social.Flow
	sessions *session.Manager
	store    *session.MemoryStore
	users    *flakyUsers
	oauth    *mockOAuthClient
	metrics  *social.Metrics
	logs     *bytes.Buffer
}

func providerConfig() auth.StaticConfig {
	return auth.StaticConfig{
		auth.ProviderGitHub: {
			auth.KeyClientID:     "gh-client",
			auth.KeyClientSecret: "gh-secret",
			auth.KeyEnabled:      "true",
		},
		auth.ProviderGoogle: {
			auth.KeyClientID:     "g-client",
			auth.KeyClientSecret: "g-secret",
			auth.KeyRedirect:     "https://app.bizhub.test/auth/google/callback",
			auth.KeyEnabled:      "false",
		},
	}
}

func newEnv(t *testing.T, sessionOpts ...session.Option) *env {
	t.Helper()
	e := &env{
		users: &flakyUsers{Memory: userstore.NewMemory()},
		oauth: &mockOAuthClient{},
		store: session.NewMemoryStore(),
		logs:  &bytes.Buffer{},
	}
	log := slog.New(slog.NewJSONHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := auth.NewRegistry(auth.ProviderDeps{
		Config: providerConfig(),
		OAuth:  e.oauth,
		Users:  e.users,
		Logger: log,
	})
	e.sessions = session.New(e.store, e.users, append([]session.Option{session.WithLogger(log)}, sessionOpts...)...)
	e.metrics = social.NewMetrics(prometheus.NewRegistry())
	e.flow = social.NewFlow(registry, e.sessions, e.users, social.WithLogger(log), social.WithMetrics(e.metrics))
	return e
}

func (e *env) start(t *testing.T) *session.Session {
	t.Helper()
	s, err := e.sessions.Start(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return s
}

func ghIdentity() auth.SocialIdentity {
	return auth.SocialIdentity{
		ExternalID:    "4242",
		Email:         "ana@bizhub.test",
		Name:          "Ana Lima",
		Nickname:      "analima",
		AvatarURL:     "https://avatars.example/4242",
		EmailVerified: true,
	}
}
