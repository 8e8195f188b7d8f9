// Package main is the entry point for the gallery server.
//
// main stays minimal:
// 1. Read configuration (defaults, optional YAML file, environment)
// 2. Create dependencies (logger, store, optional cache)
// 3. Start the server
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/visions/internal/cache"
	"github.com/sakif/visions/internal/config"
	"github.com/sakif/visions/internal/repository/factory"
	"github.com/sakif/visions/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("GALLERY_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// === 1. CONFIGURATION ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx := context.Background()

	// === 3. STORE ===
	repo, err := factory.New(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.Store.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CACHE (optional) ===
	deps := server.Deps{Repo: repo}
	if cfg.Cache.RedisAddr != "" {
		c, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("redis unavailable, serving without cache",
				slog.String("addr", cfg.Cache.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			deps.Cache = c
		}
	}

	// === 5. SERVER ===
	srv, err := server.New(cfg, logger, deps)
	if err != nil {
		repo.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until Ctrl+C or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(lc.Level)
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
