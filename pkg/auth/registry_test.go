package auth_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
)

func newRegistry(opts ...auth.RegistryOption) *auth.Registry {
	return auth.NewRegistry(auth.ProviderDeps{
		Config: auth.StaticConfig{"google": googleConfig()},
	}, opts...)
}

func TestRegistry_Make(t *testing.T) {
	reg := newRegistry()

	first, err := reg.Make("google")
	require.NoError(t, err)
	second, err := reg.Make("google")
	require.NoError(t, err)
	assert.Same(t, first, second)

	reg.ClearCache()
	third, err := reg.Make("google")
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	_, err = reg.Make("myspace")
	var unknown *auth.UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "myspace", unknown.Name)
}

func TestRegistry_ConcurrentMakeSharesInstance(t *testing.T) {
	reg := newRegistry()

	const n = 16
	got := make([]auth.Provider, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := reg.Make("github")
			assert.NoError(t, err)
			got[i] = p
		}()
	}
	wg.Wait()

	for _, p := range got[1:] {
		assert.Same(t, got[0], p)
	}
}

func TestRegistry_Listing(t *testing.T) {
	reg := newRegistry()

	assert.Equal(t, []string{"google", "github"}, reg.AvailableProviders())
	assert.True(t, reg.HasProvider("github"))
	assert.False(t, reg.HasProvider("gitlab"))
	assert.True(t, reg.IsProviderEnabled("google"))
	assert.False(t, reg.IsProviderEnabled("github"))
	assert.False(t, reg.IsProviderEnabled("gitlab"))

	enabled := reg.EnabledProviders()
	assert.Len(t, enabled, 1)
	assert.Contains(t, enabled, "google")
}

func TestRegistry_RegisterProvider(t *testing.T) {
	reg := newRegistry()

	t.Run("rejects values that cannot build a provider", func(t *testing.T) {
		type notAProvider struct{}
		for _, kind := range []any{notAProvider{}, nil, "google", func() auth.Provider { return nil }, auth.ProviderFactory(nil)} {
			err := reg.RegisterProvider("mock", kind)
			var invalid *auth.InvalidProviderTypeError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "mock", invalid.Name)
		}
		assert.False(t, reg.HasProvider("mock"))
		assert.Equal(t, []string{"google", "github"}, reg.AvailableProviders())
	})

	t.Run("adds a provider", func(t *testing.T) {
		err := reg.RegisterProvider("gitlab", func(deps auth.ProviderDeps) auth.Provider {
			return auth.NewBaseProvider(auth.ProviderSpec{Name: "gitlab", DisplayName: "GitLab"}, deps, nil)
		})
		require.NoError(t, err)
		assert.True(t, reg.HasProvider("gitlab"))

		p, err := reg.Make("gitlab")
		require.NoError(t, err)
		assert.Equal(t, "GitLab", p.DisplayName())
	})

	t.Run("replacing evicts the cached instance", func(t *testing.T) {
		before, err := reg.Make("github")
		require.NoError(t, err)

		require.NoError(t, reg.RegisterProvider("github", auth.ProviderFactory(auth.NewGitHubProvider)))

		after, err := reg.Make("github")
		require.NoError(t, err)
		assert.NotSame(t, before, after)
		assert.Equal(t, []string{"google", "github", "gitlab"}, reg.AvailableProviders())
	})
}

func TestRegistry_Options(t *testing.T) {
	reg := auth.NewRegistry(auth.ProviderDeps{},
		auth.WithoutDefaults(),
		auth.WithProvider("github", auth.NewGitHubProvider),
		auth.WithOverrides("github", map[string]string{
			auth.KeyClientID:     "id",
			auth.KeyClientSecret: "secret",
			auth.KeyEnabled:      "1",
		}),
	)

	assert.Equal(t, []string{"github"}, reg.AvailableProviders())
	assert.True(t, reg.IsProviderEnabled("github"))
}

func TestRegistry_ProviderStatus(t *testing.T) {
	reg := newRegistry()

	status := reg.ProviderStatus()
	require.Len(t, status, 2)

	google := status["google"]
	assert.Equal(t, "Google", google.DisplayName)
	assert.True(t, google.Enabled)
	assert.True(t, google.Configured)
	assert.Equal(t, []string{"client_id", "client_secret", "redirect"}, google.RequiredConfig)

	github := status["github"]
	assert.False(t, github.Enabled)
	assert.False(t, github.Configured)
	assert.Equal(t, []string{"redirect", "enabled"}, github.OptionalConfig)
}
