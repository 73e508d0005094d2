package auth

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bizhub/socialauth/pkg/config"
)

// Provider configuration keys.
const (
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyRedirect     = "redirect"
	KeyEnabled      = "enabled"
	KeyScopes       = "scopes"
)

// ProviderConfig is the merged key/value configuration of one provider.
type ProviderConfig map[string]string

// Get returns the trimmed value of key.
func (c ProviderConfig) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Bool parses key as a boolean; "yes" and "on" count as true.
func (c ProviderConfig) Bool(key string) bool {
	v := strings.ToLower(c.Get(key))
	switch v {
	case "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// Scopes splits the comma separated scopes value.
func (c ProviderConfig) Scopes() []string {
	var scopes []string
	for s := range strings.SplitSeq(c.Get(KeyScopes), ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// Merge returns a copy of base with overrides applied on top.
func Merge(base, overrides map[string]string) ProviderConfig {
	out := make(ProviderConfig, len(base)+len(overrides))
	maps.Copy(out, base)
	maps.Copy(out, overrides)
	return out
}

// ConfigSource supplies the raw configuration of a provider by name.
type ConfigSource interface {
	ProviderConfig(name string) map[string]string
}

// StaticConfig is an in-memory ConfigSource keyed by provider name.
type StaticConfig map[string]map[string]string

func (s StaticConfig) ProviderConfig(name string) map[string]string {
	return maps.Clone(s[name])
}

// LayeredConfig merges several sources; later sources win per key.
type LayeredConfig []ConfigSource

func (l LayeredConfig) ProviderConfig(name string) map[string]string {
	out := map[string]string{}
	for _, src := range l {
		maps.Copy(out, src.ProviderConfig(name))
	}
	return out
}

// EnvProviderConfig is the environment shape of one provider.
type EnvProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Redirect     string `env:"REDIRECT"`
	Enabled      string `env:"ENABLED"`
	Scopes       string `env:"SCOPES"`
}

func (c EnvProviderConfig) values() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		KeyClientID:     c.ClientID,
		KeyClientSecret: c.ClientSecret,
		KeyRedirect:     c.Redirect,
		KeyEnabled:      c.Enabled,
		KeyScopes:       c.Scopes,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// EnvConfig reads SOCIALAUTH_GOOGLE_* and SOCIALAUTH_GITHUB_* variables.
type EnvConfig struct {
	Google EnvProviderConfig `envPrefix:"SOCIALAUTH_GOOGLE_"`
	GitHub EnvProviderConfig `envPrefix:"SOCIALAUTH_GITHUB_"`
}

// LoadEnvConfig parses the provider variables from the environment.
func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := config.Reload(&cfg); err != nil {
		return nil, fmt.Errorf("load provider env config: %w", err)
	}
	return &cfg, nil
}

func (c *EnvConfig) ProviderConfig(name string) map[string]string {
	switch name {
	case ProviderGoogle:
		return c.Google.values()
	case ProviderGitHub:
		return c.GitHub.values()
	}
	return map[string]string{}
}

// FileConfig reads provider settings from a YAML document of the form
//
//	providers:
//	  google:
//	    client_id: ...
//	    enabled: true
type FileConfig struct {
	path string

	mu        sync.RWMutex
	providers map[string]map[string]string
}

// LoadFileConfig reads and parses path.
func LoadFileConfig(path string) (*FileConfig, error) {
	fc := &FileConfig{path: path}
	if err := fc.Reload(); err != nil {
		return nil, err
	}
	return fc, nil
}

// Reload re-reads the file. Providers built before the reload keep their
// configuration until Registry.ClearCache is called.
func (f *FileConfig) Reload() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read provider config %s: %w", f.path, err)
	}
	var doc struct {
		Providers map[string]map[string]any `yaml:"providers"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse provider config %s: %w", f.path, err)
	}

	providers := make(map[string]map[string]string, len(doc.Providers))
	for name, values := range doc.Providers {
		m := make(map[string]string, len(values))
		for k, v := range values {
			switch vv := v.(type) {
			case nil:
			case []any:
				parts := make([]string, 0, len(vv))
				for _, p := range vv {
					parts = append(parts, fmt.Sprint(p))
				}
				m[k] = strings.Join(parts, ",")
			default:
				m[k] = fmt.Sprint(vv)
			}
		}
		providers[name] = m
	}

	f.mu.Lock()
	f.providers = providers
	f.mu.Unlock()
	return nil
}

func (f *FileConfig) ProviderConfig(name string) map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.providers[name])
}
