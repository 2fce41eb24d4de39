// The paperweb command runs the upload and settings front end. It owns the
// HTTP surface and the settings store, and relays display commands to the
// renderer through the mailbox.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperweb/config"
	"github.com/paperfeed/paperfeed/internal/paperweb/events"
	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit"
	ratelimitmem "github.com/paperfeed/paperfeed/internal/paperweb/ratelimit/memory"
	ratelimitredis "github.com/paperfeed/paperfeed/internal/paperweb/ratelimit/redis"
	"github.com/paperfeed/paperfeed/internal/paperweb/server"
	"github.com/paperfeed/paperfeed/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Initialize structured logging with JSON format for easier parsing
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	httpLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	contentStore, err := content.NewStore(cfg.Content.WatchDir)
	if err != nil {
		logger.Error("failed to open watched folder", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open settings store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	producer, err := mailbox.NewProducer(cfg.Mailbox.Dir)
	if err != nil {
		logger.Error("failed to open mailbox", "error", err)
		os.Exit(1)
	}

	limitService := buildRateLimiter(cfg, logger)
	limiters := ratelimit.NewCommonRateLimiters(limitService, logger)

	hub := events.NewHub(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		_ = hub.Run(ctx)
	}()

	handler := server.NewHandler(cfg, contentStore, db, producer, hub, limiters, httpLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout),
	}

	go func() {
		logger.Info("starting server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// buildRateLimiter selects the Redis store when an address is configured,
// otherwise the in-process store
func buildRateLimiter(cfg *config.Config, logger *slog.Logger) ratelimit.Service {
	var limitStore ratelimit.Store
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		limitStore = ratelimitredis.NewStore(client)
		logger.Info("rate limiting via redis", "addr", cfg.RateLimit.RedisAddr)
	} else {
		limitStore = ratelimitmem.NewStore()
	}

	service := ratelimit.NewService(limitStore, logger)
	if cfg.RateLimit.Enabled {
		service.RegisterDefaultLimits()
	}
	return service
}
