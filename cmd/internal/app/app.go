// Package app wires the finapp server runtime: config, logging, stores,
// the auth HTTP surface and the background reaper.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"finapp/cmd/identity"
	authapi "finapp/cmd/internal/auth/api"
	"finapp/cmd/internal/auth/authsvc"
	"finapp/cmd/internal/auth/ratelimit"
	"finapp/cmd/internal/auth/session"
	"finapp/cmd/internal/auth/throttle"
	"finapp/cmd/security/password"
	"finapp/cmd/security/token"
)

// stores groups the persistence backends selected at startup.
type stores struct {
	accounts identity.Directory
	sessions session.Store
	attempts throttle.Store
	pool     *pgxpool.Pool
}

func (s stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// App is the finapp server runtime.
type App struct {
	cfg Config
	log Logger

	stores   stores
	registry *prometheus.Registry
	handler  http.Handler
	reaper   *session.Reaper
}

// New constructs a fully wired App. Auth, password and session settings
// are read from the environment.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	authCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	st, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, log, sessCfg, authCfg, pwCfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg Config, log Logger, sessCfg session.Config, authCfg authapi.Config, pwCfg password.Config, st stores) (*App, error) {
	codec, err := token.NewCodec(sessCfg.Issuer, []byte(sessCfg.TokenSecret), sessCfg.ClockSkew)
	if err != nil {
		return nil, err
	}
	creds, err := identity.NewPasswordVerifier(pwCfg)
	if err != nil {
		return nil, err
	}
	digester := sessCfg.Digester()
	attempts := throttle.New(st.attempts)

	svc, err := authsvc.New(authsvc.Config{
		AccessTokenTTL:    sessCfg.AccessTokenTTL,
		RefreshTokenTTL:   sessCfg.RefreshTokenTTL,
		EnforceLoginBlock: authCfg.EnforceLoginBlock,
	}, authsvc.Deps{
		Accounts:    st.accounts,
		Credentials: creds,
		Sessions:    st.sessions,
		Throttle:    attempts,
		Codec:       codec,
		Digester:    digester,
	}, authsvc.WithLogger(log))
	if err != nil {
		return nil, err
	}

	reg := newRegistry()
	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)

	auth, err := authapi.NewHandler(log, authCfg, svc,
		session.NewRegistry(st.sessions, digester),
		limiter,
		authapi.WithMetrics(authapi.NewMetrics(reg)),
	)
	if err != nil {
		return nil, err
	}

	reaper := session.NewReaper(st.sessions, sessCfg.ReaperInterval,
		session.WithSweep("rate_limit", limiter.Prune),
		session.WithReaperLogger(log),
		session.WithObserver(newReaperMetrics(reg).observe),
	)

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, st.pool, reg, auth)

	return &App{
		cfg:      cfg,
		log:      log,
		stores:   st,
		registry: reg,
		handler:  WithRequestLogging(WithSecurityHeaders(auth.Authenticate(mux)), log),
		reaper:   reaper,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP and runs the reaper until ctx is cancelled or either
// fails, then shuts both down and releases the stores.
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
	defer a.stores.Close()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.stores.pool != nil)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.reaper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()
	a.log.Info("server.stopped")
	return err
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

// newStores picks Postgres when a database URL is configured and in-memory
// stores otherwise.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return memoryStores(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return stores{}, err
	}

	accounts, err := identity.NewPostgresDirectory(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}

	log.Info("db.enabled.postgres_store")
	return stores{
		accounts: accounts,
		sessions: session.NewPostgresStore(pool),
		attempts: throttle.NewPostgresStore(pool),
		pool:     pool,
	}, nil
}

func memoryStores() stores {
	return stores{
		accounts: identity.NewMemoryDirectory(),
		sessions: session.NewMemoryStore(),
		attempts: throttle.NewMemoryStore(),
	}
}
