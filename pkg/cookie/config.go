package cookie

import "strings"

// Config is the environment shape of a Manager.
type Config struct {
	Secrets string `env:"COOKIE_SECRETS,required"` // comma separated, newest first
	Domain  string `env:"COOKIE_DOMAIN"`
	Secure  bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

// NewFromConfig builds a Manager from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	var secrets []string
	for s := range strings.SplitSeq(cfg.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	base := []Option{WithSecure(cfg.Secure)}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	return New(secrets, append(base, opts...)...)
}
