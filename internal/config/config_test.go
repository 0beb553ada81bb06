package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		skipEnv string
		wantErr string
	}{
		{"missing DATABASE_URL", "DATABASE_URL", "DATABASE_URL is required"},
		{"missing REDIS_URL", "REDIS_URL", "REDIS_URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.skipEnv, "")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.StaleSweepInterval)
	assert.Equal(t, 60*time.Second, cfg.StaleTimeout)
	assert.Equal(t, 50, cfg.OfflineQueueCap)
	assert.Equal(t, 10, cfg.MaxConnectionsPerUser)
}

func TestLoad_CustomHeartbeatTuning(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PING_INTERVAL", "5s")
	t.Setenv("STALE_SWEEP_INTERVAL", "2s")
	t.Setenv("STALE_TIMEOUT", "15s")
	t.Setenv("OFFLINE_QUEUE_CAP", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, 2*time.Second, cfg.StaleSweepInterval)
	assert.Equal(t, 15*time.Second, cfg.StaleTimeout)
	assert.Equal(t, 100, cfg.OfflineQueueCap)
}

func TestLoad_RejectsBadHeartbeatTuning(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative ping interval", "PING_INTERVAL", "-5s"},
		{"zero stale sweep", "STALE_SWEEP_INTERVAL", "0s"},
		{"stale timeout below sweep interval", "STALE_TIMEOUT", "5s"},
		{"zero queue cap", "OFFLINE_QUEUE_CAP", "0"},
		{"negative connection cap", "MAX_CONNECTIONS_PER_USER", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
