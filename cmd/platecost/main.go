package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/platecost/platecost/internal/app"
	"github.com/platecost/platecost/internal/audit"
	audithttp "github.com/platecost/platecost/internal/audit/http"
	"github.com/platecost/platecost/internal/auth"
	"github.com/platecost/platecost/internal/observability"
	"github.com/platecost/platecost/internal/platform/cache"
	"github.com/platecost/platecost/internal/platform/db"
	"github.com/platecost/platecost/internal/properties"
	"github.com/platecost/platecost/internal/rbac"
	"github.com/platecost/platecost/internal/shared"
	"github.com/platecost/platecost/internal/users"
	"github.com/platecost/platecost/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "platecost_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	if err := rbac.SetupCacheMetrics(metrics.Registerer()); err != nil {
		logger.Warn("register cache metrics", slog.Any("error", err))
	}

	auditLogger := audit.NewLogger(pool)

	permCache := rbac.NewLayeredCache(
		rbac.NewMemoryCache(),
		rbac.NewRedisCache(redisClient, cfg.PermCacheTTL),
	)
	permCache.ListenForBumps(ctx)

	rbacStore := rbac.NewSQLStore(pool)
	resolver := rbac.NewResolver(rbacStore, permCache, auditLogger, logger)
	admin := rbac.NewAdmin(rbacStore, permCache, auditLogger, logger)
	guard := rbac.NewGuard(resolver)
	rbacMiddleware := rbac.Middleware{Store: rbacStore, Resolver: resolver, Guard: guard, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, resolver, admin, rbacMiddleware)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, auditLogger)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, permCache, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	propertiesRepo := properties.NewRepository(pool)
	propertiesService := properties.NewService(propertiesRepo)
	propertiesHandler := properties.NewHandler(logger, propertiesService, resolver, rbacMiddleware)

	auditRepo := audit.NewSQLRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService, audit.CSVExporter{})

	asynqOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(asynqOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(asynq.NewInspector(asynqOpts), jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		PropertiesHandler: propertiesHandler,
		RBACHandler:       rbacHandler,
		AuditHandler:      auditHandler,
		JobsHandler:       jobsHandler,
		RBACMiddleware:    rbacMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
