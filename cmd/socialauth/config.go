package main

import (
	"log/slog"
	"time"

	"github.com/bizhub/socialauth/modules/social"
	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/clientip"
	"github.com/bizhub/socialauth/pkg/config"
	"github.com/bizhub/socialauth/pkg/httpserver"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/ratelimit"
	"github.com/bizhub/socialauth/pkg/requestid"
	"github.com/bizhub/socialauth/pkg/session"
)

// AppConfig is the service configuration. Database, Redis and cookie
// settings are loaded separately because only some commands need them.
type AppConfig struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	ServiceName   string        `env:"APP_NAME" envDefault:"socialauth"`
	ProvidersFile string        `env:"SOCIALAUTH_PROVIDERS_FILE"`
	StateTTL      time.Duration `env:"SOCIALAUTH_STATE_TTL" envDefault:"10m"`

	HTTP      httpserver.Config
	Session   session.Config
	Social    social.Config `envPrefix:"SOCIALAUTH_"`
	RateLimit ratelimit.Config
}

func loadAppConfig() (AppConfig, error) {
	var cfg AppConfig
	err := config.Load(&cfg)
	return cfg, err
}

func newLogger(cfg AppConfig) *slog.Logger {
	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LogExtractor()),
		logger.WithContextValue("client_ip", clientip.ContextKey()),
	)
	logger.SetAsDefault(log)
	return log
}

// providerSource layers the environment under the optional YAML file. The
// file, when present, is returned too so it can be reloaded.
func providerSource(cfg AppConfig) (auth.ConfigSource, *auth.FileConfig, error) {
	env, err := auth.LoadEnvConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ProvidersFile == "" {
		return env, nil, nil
	}
	file, err := auth.LoadFileConfig(cfg.ProvidersFile)
	if err != nil {
		return nil, nil, err
	}
	return auth.LayeredConfig{env, file}, file, nil
}
