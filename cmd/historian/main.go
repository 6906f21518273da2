// cmd/historian/main.go runs the historian: it pops game action records from
// the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/config"
	"github.com/jason-s-yu/peak/internal/database"
	"github.com/jason-s-yu/peak/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logrus.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logrus.Fatalf("schema: %v", err)
	}

	svc := historian.NewService(cache.NewActionQueue(rdb, cfg.HistorianQueue), historian.DatabaseSink{}, historian.Options{
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay,
		Inactivity: cfg.GameInactivity,
	})
	svc.Run(ctx)
	logrus.Info("Historian shutdown complete.")
}
