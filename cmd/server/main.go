// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/peak/internal/auth"
	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/config"
	"github.com/jason-s-yu/peak/internal/database"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/handlers"
	"github.com/jason-s-yu/peak/internal/matchmaking"
	"github.com/jason-s-yu/peak/internal/middleware"
	"github.com/jason-s-yu/peak/internal/roomsync"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		err = auth.InitFromPath(priv, pub, cfg.TokenExpire)
	} else {
		err = auth.Init(cfg.TokenExpire)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
		logger.Warnf("database unavailable, results will not be persisted: %v", err)
	} else {
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.Fatalf("schema: %v", err)
		}
	}

	queue, err := matchmaking.NewQueue(cfg.QueueGroupSize, cfg.QueueTimeout)
	if err != nil {
		logger.Fatalf("matchmaking: %v", err)
	}

	srv := handlers.NewGameServer(logger, roomsync.NewRedisStore(rdb, cfg.RedisPrefix, cfg.RoomTTL), queue)
	srv.JoinAttempts = cfg.JoinRetryAttempts
	srv.JoinDelay = cfg.JoinRetryDelay
	srv.Recorder = cache.NewActionQueue(rdb, cfg.HistorianQueue)
	srv.OnGameEnd = func(res game.GameResult) {
		// the caller holds the room adapter; persist off its goroutine
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := database.RecordGameResult(ctx, res); err != nil && !errors.Is(err, database.ErrNoDatabase) {
				logger.Errorf("failed to record game %s: %v", res.GameID, err)
			}
		}()
	}

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// identity
	mux.Handle("/auth/guest", logged(http.HandlerFunc(handlers.GuestHandler)))

	// rooms
	mux.Handle("/room/create", logged(handlers.CreateRoomHandler(srv)))
	mux.Handle("/room/", logged(handlers.GetRoomHandler(srv)))

	// matchmaking
	mux.Handle("/queue/join", logged(handlers.QueueJoinHandler(srv)))
	mux.Handle("/queue/leave", logged(handlers.QueueLeaveHandler(srv)))

	// game websocket
	mux.Handle("/game/ws/", logged(handlers.GameWSHandler(logger, srv)))

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
