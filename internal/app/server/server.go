package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"takehome/internal/domain/audit"
	"takehome/internal/domain/salary"
	"takehome/internal/platform/config"
	"takehome/internal/platform/db"
	"takehome/internal/platform/display"
	"takehome/internal/platform/jobs"
	"takehome/internal/platform/metrics"
	"takehome/internal/requestctx"
	salaryhandler "takehome/internal/transport/http/handlers/salary"
	"takehome/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	DB      *pgxpool.Pool
	Service *salary.Service
	Metrics *metrics.Collector
	Router  http.Handler

	store   salary.StoreAPI
	watcher *salary.Watcher
	jobs    *jobs.Service
}

// New wires the rule source, salary service and HTTP router. The caller owns
// the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}

	source, err := app.ruleSource(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	opts := []salary.ServiceOption{salary.WithLogger(logger)}
	if app.Metrics != nil {
		opts = append(opts, salary.WithRecorder(app.Metrics))
	}
	app.Service, err = salary.NewService(ctx, source, cfg.SuperannuationPercentage, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	if cfg.WatchRules {
		files, ok := source.(*salary.FileSource)
		if !ok {
			logger.Warn("rule watching only applies to file rule sources", "rulesSource", cfg.RulesSource)
		} else {
			app.watcher, err = salary.NewWatcher(files.WatchedPaths(), app.Service.Reload, cfg.RulesReloadDebounce, logger)
			if err != nil {
				app.Close()
				return nil, fmt.Errorf("watch rule files: %w", err)
			}
		}
	}

	if app.DB != nil {
		app.jobs = jobs.New(app.DB, logger)
	}

	money, err := display.New(cfg.DisplayLocale, cfg.Currency)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Router = app.routes(money)
	return app, nil
}

func (a *App) ruleSource(ctx context.Context) (salary.RuleSource, error) {
	if !a.Config.UsesDatabase() {
		return salary.NewFileSource(a.Config.MedicareLevyRules, a.Config.BudgetRepairLevyRules, a.Config.IncomeTaxRules, a.Logger), nil
	}

	pool, err := db.Connect(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	a.DB = pool

	if a.Config.RunMigrations {
		if err := db.Migrate(ctx, pool, a.Config.MigrationsDir); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if a.Config.RunSeed {
		if err := db.Seed(ctx, pool, a.Config, a.Logger); err != nil {
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	a.store = salary.NewStore(pool)
	return salary.NewDBSource(a.store, a.Logger), nil
}

func (a *App) routes(money *display.Formatter) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if a.Metrics != nil {
		router.Use(middleware.Logger(a.Logger, a.Metrics))
	} else {
		router.Use(middleware.Logger(a.Logger, nil))
	}
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.store.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if a.Service.Rules().IncomeTax.Len() == 0 {
			http.Error(w, "income tax rules not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if a.Metrics != nil {
		router.Handle("/metrics", a.Metrics.Handler())
	}

	salaryHandler := salaryhandler.NewHandler(a.Service, money)
	salaryHandler.Logger = a.Logger
	salaryHandler.RequireAuth = cfg.RequireAuth
	salaryHandler.PayslipDir = cfg.PayslipDir
	if a.DB != nil {
		salaryHandler.Audit = audit.New(a.DB)
	}
	if a.jobs != nil {
		salaryHandler.Jobs = a.jobs
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		salaryHandler.RegisterRoutes(r)
	})
	return router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}
	if a.jobs != nil {
		a.jobs.Start(ctx)
		a.jobs.Schedule(ctx, jobs.JobRulesRefresh, a.Config.RulesRefreshInterval, a.refreshRules)
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("takehome server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// refreshRules picks up rule_sets rows written by other processes.
func (a *App) refreshRules(ctx context.Context) (any, error) {
	if err := a.Service.Reload(requestctx.WithActor(ctx, "job:"+jobs.JobRulesRefresh)); err != nil {
		return nil, err
	}
	return a.Service.Rules().Counts(), nil
}

func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
