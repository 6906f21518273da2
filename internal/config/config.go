// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds process settings read from the environment (and .env, when
// the binary imports godotenv/autoload).
type Config struct {
	Port string

	RedisAddr   string
	RedisDB     int
	RedisPrefix string
	RoomTTL     time.Duration

	DatabaseURL string

	// TokenExpire of 0 issues tokens without an exp claim.
	TokenExpire time.Duration

	LogLevel logrus.Level

	QueueGroupSize int
	QueueTimeout   time.Duration

	JoinRetryAttempts int
	JoinRetryDelay    time.Duration

	HistorianQueue      string
	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
	// GameInactivity is how long the historian waits before marking a silent game abandoned.
	GameInactivity time.Duration
}

// Load reads the configuration, applying defaults for anything unset.
func Load() (*Config, error) {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	tokenExpire, err := getEnvDuration("TOKEN_EXPIRE_TIME", 0)
	if err != nil {
		return nil, err
	}
	queueTimeout, err := getEnvDuration("QUEUE_TIMEOUT", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	joinDelay, err := getEnvDuration("JOIN_RETRY_DELAY", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	roomTTL, err := getEnvDuration("ROOM_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisPrefix:         getEnv("REDIS_PREFIX", "peak"),
		RoomTTL:             roomTTL,
		DatabaseURL:         databaseURL(),
		TokenExpire:         tokenExpire,
		LogLevel:            level,
		QueueGroupSize:      getEnvInt("QUEUE_GROUP_SIZE", 4),
		QueueTimeout:        queueTimeout,
		JoinRetryAttempts:   getEnvInt("JOIN_RETRY_ATTEMPTS", 10),
		JoinRetryDelay:      joinDelay,
		HistorianQueue:      getEnv("HISTORIAN_QUEUE", "peak_actions"),
		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		GameInactivity:      time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	if cfg.QueueGroupSize < 2 || cfg.QueueGroupSize > 4 {
		return nil, fmt.Errorf("QUEUE_GROUP_SIZE must be between 2 and 4, got %d", cfg.QueueGroupSize)
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and falls back to the PG_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		getEnv("PG_HOST", "localhost"),
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "peak"),
	)
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("ignoring invalid %s=%q, using %d", key, v, defVal)
		return defVal
	}
	return i
}

// getEnvDuration parses a Go duration; "never" and "0" mean zero.
func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	switch v {
	case "":
		return defVal, nil
	case "never", "0":
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}
