package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/adapter/bancard"
	"github.com/smallbiznis/launchpad/internal/adapter/cache"
	"github.com/smallbiznis/launchpad/internal/bootstrap"
	"github.com/smallbiznis/launchpad/internal/config"
	launchpadhttp "github.com/smallbiznis/launchpad/internal/http"
	"github.com/smallbiznis/launchpad/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/launchpad/internal/http/middleware"
	"github.com/smallbiznis/launchpad/internal/jwt"
	"github.com/smallbiznis/launchpad/internal/middleware"
	"github.com/smallbiznis/launchpad/internal/repository"
	"github.com/smallbiznis/launchpad/internal/server"
	"github.com/smallbiznis/launchpad/internal/service"
	"github.com/smallbiznis/launchpad/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflakeNode,
			newPGXPool,
			newRedisClient,
			newLockoutStore,
			newSigner,
			newUserRepository,
			newTokenRepository,
			newCustomerRepository,
			newAuditRepository,
			newBancardClient,
			service.NewAuthService,
			newSweeper,
			service.NewCustomerService,
			service.NewBillingService,
			handler.NewAuthHandler,
			handler.NewCustomerHandler,
			handler.NewBillingHandler,
			newAuthMiddleware,
			newRateLimiter,
			launchpadhttp.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(
			useTelemetry,
			bootstrap.EnsureAdmin,
			startSweeper,
			startHTTPServer,
		),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

func newSnowflakeNode() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return node, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) redis.UniversalClient {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newLockoutStore(client redis.UniversalClient, cfg config.Config) service.LockoutStore {
	return cache.NewRedisLockoutStore(client, cfg.LockoutAttempts, cfg.LockoutWindow)
}

func newSigner(cfg config.Config) *jwt.Signer {
	return jwt.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newTokenRepository(pool *pgxpool.Pool) repository.TokenRepository {
	return repository.NewPostgresTokenRepo(pool)
}

func newCustomerRepository(pool *pgxpool.Pool) repository.CustomerRepository {
	return repository.NewPostgresCustomerRepo(pool)
}

func newAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return repository.NewPostgresAuditRepo(pool)
}

func newBancardClient() bancard.Client {
	return bancard.NewStubClient()
}

func newSweeper(tokens repository.TokenRepository, cfg config.Config, logger *zap.Logger) *service.Sweeper {
	return service.NewSweeper(tokens, cfg.CleanupInterval, logger)
}

func newAuthMiddleware(auth *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: auth}
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg)
}

// useTelemetry forces the telemetry provider to be constructed; without a
// consumer fx would never instantiate it and no tracer would be installed.
func useTelemetry(*telemetry.Provider) {}

func startSweeper(lc fx.Lifecycle, sweeper *service.Sweeper) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sweeper.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("http server starting", zap.String("addr", srv.Addr()))
			go func() {
				done <- srv.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
