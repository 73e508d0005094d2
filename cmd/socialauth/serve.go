package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bizhub/socialauth/modules/account"
	"github.com/bizhub/socialauth/modules/social"
	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/clientip"
	"github.com/bizhub/socialauth/pkg/config"
	"github.com/bizhub/socialauth/pkg/cookie"
	"github.com/bizhub/socialauth/pkg/httpserver"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/oauth"
	"github.com/bizhub/socialauth/pkg/pg"
	"github.com/bizhub/socialauth/pkg/ratelimit"
	"github.com/bizhub/socialauth/pkg/redis"
	"github.com/bizhub/socialauth/pkg/requestid"
	"github.com/bizhub/socialauth/pkg/session"
	"github.com/bizhub/socialauth/pkg/userstore"
)

func newServeCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "keep users, sessions and OAuth state in memory (development only)")
	return cmd
}

// backend bundles the storage chosen for a run.
type backend struct {
	users    auth.UserDirectory
	sessions session.Store
	epochs   session.EpochStore
	states   oauth.StateStore
	limits   ratelimit.Store
	checks   []func(context.Context) error
	close    func()
}

func memoryBackend() *backend {
	limits := ratelimit.NewMemoryStore()
	return &backend{
		users:    userstore.NewMemory(),
		sessions: session.NewMemoryStore(),
		epochs:   session.NewMemoryEpochStore(),
		states:   oauth.NewMemoryStateStore(),
		limits:   limits,
		close:    limits.Close,
	}
}

func persistentBackend(ctx context.Context, log *slog.Logger) (*backend, error) {
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	db := pg.OpenDB(pool)
	if err := pg.Migrate(ctx, db, userstore.Migrations, userstore.MigrationsDir, pgCfg, log); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	prefix := redisCfg.KeyPrefix
	return &backend{
		users:    userstore.NewPostgres(db),
		sessions: session.NewRedisStore(rdb, prefix),
		epochs:   session.NewRedisEpochStore(rdb, prefix),
		states:   oauth.NewRedisStateStore(rdb, prefix),
		limits:   ratelimit.NewRedisStore(rdb, prefix),
		checks:   []func(context.Context) error{pg.Healthcheck(pool), redis.Healthcheck(rdb)},
		close: func() {
			_ = rdb.Close()
			_ = db.Close()
			pool.Close()
		},
	}, nil
}

func serve(ctx context.Context, memory bool) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var cookieCfg cookie.Config
	if err := config.Load(&cookieCfg); err != nil {
		return err
	}
	cookies, err := cookie.NewFromConfig(cookieCfg)
	if err != nil {
		return err
	}

	source, file, err := providerSource(cfg)
	if err != nil {
		return err
	}

	var be *backend
	if memory {
		log.Warn("running with in-memory storage, state is lost on restart")
		be = memoryBackend()
	} else if be, err = persistentBackend(ctx, log); err != nil {
		return err
	}
	defer be.close()

	oauthClient := oauth.NewClient(be.states, oauth.WithStateTTL(cfg.StateTTL), oauth.WithLogger(log))
	registry := auth.NewRegistry(auth.ProviderDeps{
		Config: source,
		OAuth:  oauthClient,
		Users:  be.users,
		Logger: log,
	})
	for name := range registry.EnabledProviders() {
		log.Info("provider enabled", logger.Provider(name))
	}

	sessions := session.New(be.sessions, be.users,
		session.WithEpochStore(be.epochs),
		session.WithTransport(session.NewCookieTransport(cookies, cfg.Session.CookieName,
			cookie.WithSecure(cfg.Session.SecureCookies))),
		session.WithConfig(cfg.Session),
		session.WithLogger(log),
	)

	limiter, err := ratelimit.NewBucket(be.limits, cfg.RateLimit)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := social.NewMetrics(promRegistry)
	flow := social.NewFlow(registry, sessions, be.users, social.WithLogger(log), social.WithMetrics(metrics))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Use(middleware.Recoverer)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, be.checks...))
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	r.Mount("/", account.Router(account.RouterOptions{
		Password: account.NewPasswordService(be.users, sessions, log),
		Social:   social.NewHandler(flow, sessions, cookies, cfg.Social),
		Throttle: ratelimit.Middleware(limiter, ratelimit.ByIP, log),
	}))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if file != nil {
		go reloadOnHangup(ctx, file, registry, log)
	}

	err = httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reloadOnHangup re-reads the providers file on SIGHUP and drops cached
// provider instances so the next request sees the new configuration.
func reloadOnHangup(ctx context.Context, file *auth.FileConfig, registry *auth.Registry, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := file.Reload(); err != nil {
				log.Error("failed to reload providers file", logger.Error(err))
				continue
			}
			registry.ClearCache()
			log.Info("provider configuration reloaded")
		}
	}
}
