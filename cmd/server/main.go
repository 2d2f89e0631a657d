package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"agora/internal/audit"
	"agora/internal/consent/metrics"
	"agora/internal/consent/service"
	"agora/internal/consent/store"
	"agora/internal/platform/config"
	"agora/internal/platform/database"
	"agora/internal/platform/health"
	"agora/internal/platform/logger"
	"agora/internal/platform/middleware"
	"agora/internal/policy"
	"agora/internal/privacy"
	httptransport "agora/internal/transport/http"
	"agora/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Logger.Level)

	pool, err := database.New(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pool != nil {
		if err := pool.Migrate(context.Background(), migrations.FS); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	var (
		consentStore service.Store
		auditStore   audit.Store
		policyStore  policy.Store
	)
	if pool != nil {
		log.Info("using postgres storage")
		consentStore = store.NewPostgres(pool.DB())
		auditStore = audit.NewPostgresStore(pool.DB())
		policyStore = policy.NewPostgres(pool.DB())
	} else {
		log.Info("using in-memory storage")
		consentStore = store.New()
		auditStore = audit.NewInMemoryStore()
		policyStore = policy.New()
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if cfg.Audit.BufferSize > 0 {
		auditOpts = append(auditOpts, audit.WithAsyncBuffer(cfg.Audit.BufferSize))
	}
	auditor := audit.NewLog(auditStore, auditOpts...)
	defer auditor.Close()

	manager := service.NewManager(consentStore, auditor, log,
		service.WithMetrics(metrics.New()),
	)
	facade := privacy.NewService(manager, auditor, policyStore, log)

	healthHandler := health.New(cfg.Server.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Server.ReadTimeout)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	routerCfg := httptransport.RouterConfig{Health: healthHandler}
	if cfg.Auth.Enabled {
		routerCfg.Auth = middleware.RequireAuth([]byte(cfg.Auth.SigningKey), log)
	}
	router := httptransport.NewRouter(httptransport.New(facade, log), log, routerCfg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
