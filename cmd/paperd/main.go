// The paperd command runs the e-paper renderer daemon. It is the single
// owner of the panel hardware; everything else talks to it through the
// command mailbox and the watched content folder.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperfeed/paperfeed/internal/paperd/config"
	"github.com/paperfeed/paperfeed/internal/paperd/daemon"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Initialize structured logging with JSON format for easier parsing
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("failed to assemble renderer", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting renderer",
		"panel", cfg.Panel.Variant,
		"watchDir", cfg.Content.WatchDir,
		"mailbox", cfg.Mailbox.Dir,
	)

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("renderer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("renderer stopped")
}
