package session

import "time"

// Config holds session settings.
type Config struct {
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"bizhub_session"`
	AnonLifetime  time.Duration `env:"SESSION_ANON_LIFETIME" envDefault:"2h"`
	AuthLifetime  time.Duration `env:"SESSION_LIFETIME" envDefault:"120m"`
	SecureCookies bool          `env:"SESSION_SECURE_COOKIES" envDefault:"true"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:    "bizhub_session",
		AnonLifetime:  2 * time.Hour,
		AuthLifetime:  120 * time.Minute,
		SecureCookies: true,
	}
}

// Lifetime returns the lifetime for an anonymous or authenticated session.
func (c Config) Lifetime(authenticated bool) time.Duration {
	if authenticated {
		return c.AuthLifetime
	}
	return c.AnonLifetime
}
