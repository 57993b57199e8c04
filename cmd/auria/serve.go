package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/auria-labs/auria-agent/config"
	"github.com/auria-labs/auria-agent/internal/agent"
	"github.com/auria-labs/auria-agent/internal/api"
	"github.com/auria-labs/auria-agent/internal/auth"
	"github.com/auria-labs/auria-agent/internal/seeder"
	"github.com/auria-labs/auria-agent/internal/telemetry"
	"github.com/auria-labs/auria-agent/internal/usage"
	"github.com/auria-labs/auria-agent/pkg/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		bind       string
		seedDevKey bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.Bind = bind
			}
			return serve(cmd.Context(), cfg, seedDevKey)
		},
	}

	serveCmd.Flags().StringVar(&bind, "bind", "", "Listen address, overrides the configured bind")
	serveCmd.Flags().BoolVar(&seedDevKey, "seed-dev-key", false, "Store the well-known development API key on start")
	return serveCmd
}

func serve(ctx context.Context, cfg *config.Config, seedDevKey bool) error {
	// 1. Logging and tracing
	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracer, err := telemetry.InitTracer(serviceName, cfg)
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer shutdownTracer()

	// 2. Stores. pgxpool connects lazily, so nothing touches the database
	// before the agent has accepted the configuration.
	var usageStore usage.Store = usage.NopStore{}
	var pgUsage *usage.PostgresStore
	var authStore *auth.PostgresStore
	var pool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pool.Close()

		pgUsage = usage.NewPostgresStore(pool)
		authStore = auth.NewPostgresStore(pool)
		usageStore = pgUsage
	}

	// 3. Agent
	a, err := agent.New(cfg,
		agent.WithUsageStore(usageStore),
		agent.WithLogger(logger),
		agent.WithTracer(otel.Tracer(serviceName)),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	// 4. Connectivity and migrations
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		logger.Info("postgres connected")

		if err := pgUsage.Migrate(ctx); err != nil {
			return err
		}
		if err := authStore.Migrate(ctx); err != nil {
			return err
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("redis connected")
	}

	var authMiddleware func(http.Handler) http.Handler
	if authStore != nil && rdb != nil {
		authMiddleware = auth.NewMiddleware(authStore, rdb, logger)
		if seedDevKey {
			seeder.SeedDevKey(ctx, authStore, logger)
		}
	} else {
		logger.Warn("api key auth disabled: requires both postgres_dsn and redis_addr")
	}

	var limiter *ratelimit.Limiter
	if rdb != nil && cfg.RateLimitTPM > 0 {
		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimitTPM)
	}

	// 5. HTTP server with graceful shutdown
	handler := api.NewHandler(a, usageStore, limiter, logger)
	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           api.NewRouter(handler, authMiddleware),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("auria agent listening",
			zap.String("bind", cfg.Bind),
			zap.Strings("node_urls", cfg.NodeURLs),
			zap.String("default_tier", cfg.DefaultTier.String()),
			zap.String("routing_strategy", cfg.RoutingStrategy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
