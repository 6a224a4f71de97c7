package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	commoncache "github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/logging"
	natsclient "github.com/pulsefeed-systems/pulsefeed-stack/common/messaging/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/config"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/handlers"
	postnats "github.com/pulsefeed-systems/pulsefeed-stack/post/internal/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/repository"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "override listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("post"))
	logging.SetDefault(logger)

	slog.Info("Starting Post service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	// Run DB migrations
	slog.Info("Running database migrations")
	m, err := migrate.New("file://migrations", cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	repo, err := repository.NewPostgresRepository(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer repo.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unreachable at startup, serving uncached until it recovers",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
	} else {
		slog.Info("Connected to Redis", slog.String("addr", cfg.Redis.Addr))
	}
	pingCancel()
	defer rdb.Close()

	postCache := cache.New(commoncache.NewRedisStore(rdb))

	bus := natsclient.New(natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          "post-service",
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWaitDuration(),
		Timeout:       5 * time.Second,
	})
	defer bus.Close()

	publisher := postnats.NewPublisher(bus)
	h := handlers.New(repo, postCache, publisher)

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("post service listening on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Println("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
