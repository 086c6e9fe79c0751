// Package app wires the PedeAí server runtime: config, logging, metrics, the identity
// store, the auth API and the edge gate in front of the page routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"pedeai/cmd/identity"
	authapi "pedeai/cmd/internal/auth/api"
	"pedeai/cmd/internal/auth/session"
	"pedeai/cmd/internal/gate"
	"pedeai/cmd/security/password"
)

// App owns the HTTP server and the resources behind it.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	redis  *redis.Client
	reg    *prometheus.Registry

	auth *authapi.Handler
	gate *gate.Gate

	handler http.Handler
}

// New constructs a fully wired App from config and logger.
// The token secret is read here; a missing or short secret is an error.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := session.NewCodec(sessCfg.Secret)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	a := &App{cfg: cfg, log: log, reg: newRegistry()}

	store, auditor, err := a.openIdentity(ctx, pwCfg)
	if err != nil {
		return nil, err
	}

	limiter, err := a.openLimiter(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var reg prometheus.Registerer
	if cfg.MetricsEnabled {
		reg = a.reg
	}

	a.auth, err = authapi.NewHandler(log, store, codec, authapi.LoadConfigFromEnv(),
		authapi.WithLimiter(limiter),
		authapi.WithAuditor(auditor),
		authapi.WithRegisterer(reg),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	gateCfg := gate.DefaultConfig()
	if len(cfg.GateProtectedPrefixes) > 0 {
		gateCfg.ProtectedPrefixes = cfg.GateProtectedPrefixes
	}
	if len(cfg.GateAuthOnlyPaths) > 0 {
		gateCfg.AuthOnlyPaths = cfg.GateAuthOnlyPaths
	}
	a.gate = gate.New(gateCfg, log, gate.WithVerifier(codec))

	var httpMetrics *HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = NewHTTPMetrics(a.reg)
	}

	mux := http.NewServeMux()
	rt := routes{log: log, cfg: cfg, db: a.dbPool, reg: a.reg, auth: a.auth, gate: a.gate}
	if a.redis != nil {
		rt.redis = a.redis
	}
	registerHTTP(mux, rt)

	a.handler = WithRequestLogging(WithSecurityHeaders(WithCORS(mux, cfg, log)), log, httpMetrics)
	return a, nil
}

// Handler returns the full middleware chain, for tests and embedding.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) openIdentity(ctx context.Context, pwCfg password.Config) (identity.Store, identity.Auditor, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.memory_store")
		s := identity.NewMemoryStore(identity.WithMemoryPasswordConfig(pwCfg))
		return s, s, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	s, err := identity.NewPostgresStore(pool,
		identity.WithSchema(a.cfg.DBSchema),
		identity.WithPasswordConfig(pwCfg),
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if a.cfg.DBAutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.Migrate(mctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		a.log.Info("db.migrated", "schema", s.Schema())
	}

	a.dbPool = pool
	a.log.Info("db.enabled.postgres_store", "schema", s.Schema())
	return s, s, nil
}

func (a *App) openLimiter(ctx context.Context) (authapi.Limiter, error) {
	if a.cfg.RedisURL == "" {
		a.log.Info("throttle.memory")
		return authapi.NewMemoryLimiter(time.Now), nil
	}

	client, err := NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.log.Info("throttle.redis")
	return authapi.NewRedisLimiter(client), nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"redis_enabled", a.redis != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
	}
	a.close()

	a.log.Info("server.stopped")
	return err
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
