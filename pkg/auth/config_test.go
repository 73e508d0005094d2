package auth_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
)

func TestProviderConfig(t *testing.T) {
	cfg := auth.ProviderConfig{
		"enabled": " On ",
		"scopes":  "openid, email,,profile",
	}
	assert.True(t, cfg.Bool("enabled"))
	assert.False(t, cfg.Bool("missing"))
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes())

	merged := auth.Merge(map[string]string{"a": "1", "b": "2"}, map[string]string{"b": "3"})
	assert.Equal(t, auth.ProviderConfig{"a": "1", "b": "3"}, merged)
}

func TestFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  google:
    client_id: gid
    client_secret: gsecret
    redirect: https://app.example.com/auth/google/callback
    enabled: true
    scopes: [openid, email]
`), 0o600))

	fc, err := auth.LoadFileConfig(path)
	require.NoError(t, err)

	google := fc.ProviderConfig("google")
	assert.Equal(t, "gid", google["client_id"])
	assert.Equal(t, "true", google["enabled"])
	assert.Equal(t, "openid,email", google["scopes"])
	assert.Empty(t, fc.ProviderConfig("github"))

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  google:\n    enabled: false\n"), 0o600))
	require.NoError(t, fc.Reload())
	assert.Equal(t, map[string]string{"enabled": "false"}, fc.ProviderConfig("google"))

	_, err = auth.LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvConfig(t *testing.T) {
	t.Setenv("SOCIALAUTH_GITHUB_CLIENT_ID", "env-id")
	t.Setenv("SOCIALAUTH_GITHUB_CLIENT_SECRET", "env-secret")
	t.Setenv("SOCIALAUTH_GITHUB_ENABLED", "true")

	env, err := auth.LoadEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"client_id":     "env-id",
		"client_secret": "env-secret",
		"enabled":       "true",
	}, env.ProviderConfig("github"))
	assert.Empty(t, env.ProviderConfig("unknown"))

	layered := auth.LayeredConfig{
		auth.StaticConfig{"github": {"client_id": "static", "redirect": "r"}},
		env,
	}
	got := layered.ProviderConfig("github")
	assert.Equal(t, "env-id", got["client_id"])
	assert.Equal(t, "r", got["redirect"])
}
