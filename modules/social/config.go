package social

import "time"

// Config holds the redirect targets and the remember-me cookie settings.
type Config struct {
	SuccessURL       string        `env:"SUCCESS_URL" envDefault:"/"`
	FailureURL       string        `env:"FAILURE_URL" envDefault:"/login"`
	RememberCookie   string        `env:"REMEMBER_COOKIE" envDefault:"remember_web"`
	RememberLifetime time.Duration `env:"REMEMBER_LIFETIME" envDefault:"720h"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		SuccessURL:       "/",
		FailureURL:       "/login",
		RememberCookie:   "remember_web",
		RememberLifetime: 30 * 24 * time.Hour,
	}
}
