package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-api/internal/api/http"
	"github.com/spec-kit/user-api/internal/api/http/handlers"
	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/config"
	"github.com/spec-kit/user-api/internal/events"
	"github.com/spec-kit/user-api/internal/observability"
	"github.com/spec-kit/user-api/internal/persistence"
	"github.com/spec-kit/user-api/internal/repository"
	"github.com/spec-kit/user-api/internal/service"
	"github.com/spec-kit/user-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.SQLDB())
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}

	identities := repository.NewIdentityCache(redis.ClientHandle(), userRepo, cfg.Cache.IdentityTTL(), logger)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartIdentityCacheWorker(dispatcher, identities, logger)

	metrics := observability.NewMetrics()
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret))
	clock := time.Now

	authService := service.NewAuthService(service.AuthDependencies{
		Users:    userRepo,
		Hasher:   hasher,
		Tokens:   tokens,
		TokenTTL: cfg.Auth.AccessTokenTTL(),
		Clock:    clock,
	})
	userService := service.NewUserService(userRepo, hasher, dispatcher, logger)

	if _, err := userService.EnsureBootstrap(ctx, cfg.Auth.Bootstrap); err != nil {
		logger.Fatal("failed to seed bootstrap user", zap.Error(err))
	}

	policy := auth.DefaultPolicy()
	if cfg.Auth.PolicyFile != "" {
		policy, err = auth.LoadPolicyFile(cfg.Auth.PolicyFile)
		if err != nil {
			logger.Fatal("failed to load policy", zap.String("file", cfg.Auth.PolicyFile), zap.Error(err))
		}
	}
	logger.Info("authorization policy loaded", zap.Int("rules", len(policy.Rules())))

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		Gate:    auth.NewAuthMiddleware(tokens, identities, clock, logger, metrics),
		Policy:  policy,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(authService),
		Users:   handlers.NewUsersHandler(userService),
		Metrics: handlers.NewMetricsHandler(metrics),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
