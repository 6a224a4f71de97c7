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

	"github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/logging"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/auth"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/config"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/proxy"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/ratelimit"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/server"
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
	).With(logging.Service("gateway"))
	logging.SetDefault(logger)

	slog.Info("Starting Gateway service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	// The counter store. A failed ping is logged but not fatal: the
	// limiters fail closed until the store comes back.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unreachable at startup, requests will be rejected until it recovers",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
	} else {
		slog.Info("Connected to Redis", slog.String("addr", cfg.Redis.Addr))
	}
	pingCancel()
	defer rdb.Close()

	store := cache.NewRedisStore(rdb)
	global := ratelimit.New(store, "global", cfg.RateLimit.GlobalMax, cfg.RateLimit.GlobalWindow())
	sensitive := ratelimit.New(store, "sensitive", cfg.RateLimit.SensitiveMax, cfg.RateLimit.SensitiveWindow())

	verifier := auth.NewVerifier(cfg.Auth.Secret)

	table := proxy.DefaultTable(cfg.Upstreams.Identity, cfg.Upstreams.Posts, cfg.Upstreams.Media, cfg.Upstreams.Search)
	if cfg.RoutesFile != "" {
		table, err = proxy.LoadTable(cfg.RoutesFile)
		if err != nil {
			slog.Error("Failed to load route table", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("Loaded route table", slog.String("path", cfg.RoutesFile), slog.Int("routes", len(table.Routes)))
	}

	dispatcher := proxy.NewDispatcher(table, verifier, global, sensitive, cfg.Upstreams.Timeout())

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(dispatcher),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("gateway listening on %s", listenAddr)
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
