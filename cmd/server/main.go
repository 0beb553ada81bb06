package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/finpulse/finpulse/internal/broker"
	"github.com/finpulse/finpulse/internal/config"
	"github.com/finpulse/finpulse/internal/coordination"
	"github.com/finpulse/finpulse/internal/database"
	"github.com/finpulse/finpulse/internal/logging"
	"github.com/finpulse/finpulse/internal/notify"
	"github.com/finpulse/finpulse/internal/platform/retry"
	"github.com/finpulse/finpulse/internal/server"
	"github.com/finpulse/finpulse/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// connectPolicy tolerates dependencies that come up slightly after the broker
// (the usual compose/k8s startup race).
var connectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency connect failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	pool, err := retry.Do(context.Background(), connectPolicy, func() (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return database.Connect(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client, err := retry.Do(context.Background(), connectPolicy, func() (*goredis.Client, error) {
		client := goredis.NewClient(opts)
		client.AddHook(coordination.NewCircuitBreakerHook())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, b *broker.Broker, cancelIngest context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelIngest()
		b.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Notification broker starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"build", version.Get().String(),
	)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	b := broker.New(broker.Options{
		PingInterval:          cfg.PingInterval,
		StaleSweepInterval:    cfg.StaleSweepInterval,
		StaleTimeout:          cfg.StaleTimeout,
		QueueCap:              cfg.OfflineQueueCap,
		MaxConnectionsPerUser: cfg.MaxConnectionsPerUser,
		Clock:                 clock,
	})
	b.Start()

	prefs := database.NewPreferenceRepo(pool)
	svc := notify.NewService(b, prefs, clock)

	ingestCtx, cancelIngest := context.WithCancel(context.Background())
	ingestor := coordination.NewEventIngestor(redisClient, svc)
	go ingestor.Start(ingestCtx)

	srv := server.NewServer(cfg, b, svc, clock)
	done := runGracefulShutdown(srv, b, cancelIngest)

	if err := srv.Start(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
