// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "REDIS_ADDR", "REDIS_DB", "REDIS_PREFIX", "ROOM_TTL", "DATABASE_URL",
		"POSTGRES_USER", "POSTGRES_PASSWORD", "PG_HOST", "PG_PORT", "PG_DATABASE",
		"TOKEN_EXPIRE_TIME", "LOG_LEVEL", "QUEUE_GROUP_SIZE", "QUEUE_TIMEOUT",
		"JOIN_RETRY_ATTEMPTS", "JOIN_RETRY_DELAY", "HISTORIAN_QUEUE", "HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "peak", cfg.RedisPrefix)
	assert.Equal(t, 24*time.Hour, cfg.RoomTTL)
	assert.Equal(t, "postgres://postgres:@localhost:5432/peak", cfg.DatabaseURL)
	assert.Zero(t, cfg.TokenExpire)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 4, cfg.QueueGroupSize)
	assert.Equal(t, 15*time.Minute, cfg.QueueTimeout)
	assert.Equal(t, 10, cfg.JoinRetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.JoinRetryDelay)
	assert.Equal(t, "peak_actions", cfg.HistorianQueue)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlushDelay)
	assert.Equal(t, 10*time.Minute, cfg.GameInactivity)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUEUE_GROUP_SIZE", "2")
	t.Setenv("QUEUE_TIMEOUT", "30s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DatabaseURL)
	assert.Equal(t, 72*time.Hour, cfg.TokenExpire)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 2, cfg.QueueGroupSize)
	assert.Equal(t, 30*time.Second, cfg.QueueTimeout)
	assert.Equal(t, 0, cfg.RedisDB, "invalid ints fall back to the default")
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_GROUP_SIZE", "6")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("QUEUE_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.TokenExpire)
}
