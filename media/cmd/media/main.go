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

	"github.com/pulsefeed-systems/pulsefeed-stack/common/logging"
	natsclient "github.com/pulsefeed-systems/pulsefeed-stack/common/messaging/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/config"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/handlers"
	medianats "github.com/pulsefeed-systems/pulsefeed-stack/media/internal/nats"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/repository"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/server"
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
	).With(logging.Service("media"))
	logging.SetDefault(logger)

	slog.Info("Starting Media service",
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

	bus := natsclient.New(natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          "media-service",
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWaitDuration(),
		Timeout:       5 * time.Second,
	})
	defer bus.Close()

	natsHandler := medianats.NewHandler(bus, repo)
	if err := natsHandler.Start(context.Background()); err != nil {
		slog.Error("Failed to start event consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	h := handlers.New(repo)

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
		log.Printf("media service listening on %s", listenAddr)
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
