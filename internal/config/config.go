package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Heartbeat tuning. The defaults match the detection-latency budget the
	// broker is designed around; override only for tests and load experiments.
	PingInterval       time.Duration `env:"PING_INTERVAL" default:"30s"`
	StaleSweepInterval time.Duration `env:"STALE_SWEEP_INTERVAL" default:"10s"`
	StaleTimeout       time.Duration `env:"STALE_TIMEOUT" default:"60s"`

	OfflineQueueCap       int `env:"OFFLINE_QUEUE_CAP" default:"50"`
	MaxConnectionsPerUser int `env:"MAX_CONNECTIONS_PER_USER" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.PingInterval <= 0 || cfg.StaleSweepInterval <= 0 || cfg.StaleTimeout <= 0 {
		return fmt.Errorf("heartbeat intervals must be positive")
	}
	if cfg.StaleTimeout <= cfg.StaleSweepInterval {
		return fmt.Errorf("STALE_TIMEOUT (%v) must exceed STALE_SWEEP_INTERVAL (%v)", cfg.StaleTimeout, cfg.StaleSweepInterval)
	}
	if cfg.OfflineQueueCap <= 0 {
		return fmt.Errorf("OFFLINE_QUEUE_CAP must be positive")
	}
	if cfg.MaxConnectionsPerUser <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_USER must be positive")
	}

	return nil
}
