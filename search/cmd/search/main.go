package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	commoncache "github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/logging"
	natsclient "github.com/pulsefeed-systems/pulsefeed-stack/common/messaging/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/config"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/handlers"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/index"
	searchnats "github.com/pulsefeed-systems/pulsefeed-stack/search/internal/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/server"
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
	).With(logging.Service("search"))
	logging.SetDefault(logger)

	slog.Info("Starting Search service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	osIndex, err := index.NewOpenSearchIndex(cfg.OpenSearch)
	if err != nil {
		slog.Error("Failed to create OpenSearch client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Connected to OpenSearch", slog.String("url", cfg.OpenSearch.URL))

	ensureCtx, ensureCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := osIndex.EnsureIndex(ensureCtx); err != nil {
		ensureCancel()
		slog.Error("Failed to ensure posts index", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ensureCancel()

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

	searchCache := cache.New(commoncache.NewRedisStore(rdb))

	bus := natsclient.New(natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          "search-service",
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWaitDuration(),
		Timeout:       5 * time.Second,
	})
	defer bus.Close()

	natsHandler := searchnats.NewHandler(bus, osIndex, searchCache)
	if err := natsHandler.Start(context.Background()); err != nil {
		slog.Error("Failed to start event consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	h := handlers.New(osIndex, searchCache)

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
		log.Printf("search service listening on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Println("shutdown signal received")

	natsHandler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
