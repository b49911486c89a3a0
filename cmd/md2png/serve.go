package main

import (
	"context"
	"errors"
	"fmt"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/hints"
	"github.com/alnah/go-md2png/internal/logging"
	"github.com/alnah/go-md2png/internal/server"
)

// runServe serves the render API until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseServeFlags(args, env)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, positional[0])
	}

	cfg, err := loadConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyServeFlags(f, cfg)
	if f.common.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	initServerLogging(cfg, env)

	renderer, err := env.NewRenderer(cfg)
	if err != nil {
		return err
	}
	if err := renderer.Available(); err != nil {
		logging.Warn("Browser not available, renders will fail until it is installed",
			"error", err.Error(), "backend", cfg.Browser.Backend)
	}

	pool := md2png.NewRenderPool(renderer, md2png.ResolvePoolSize(cfg.Server.Workers))
	app := server.New(server.Deps{
		Config:   *cfg,
		Renderer: pool,
		Stats:    pool,
		Ready:    renderer,
	})

	logging.Info("Server starting",
		"addr", cfg.Server.Addr,
		"version", Version,
		"workers", pool.Size(),
		"backend", cfg.Browser.Backend,
		"auth", cfg.Auth.Enabled,
		"rate_limit", cfg.RateLimit.Enabled)

	if err := server.Run(ctx, app, cfg.Server.Addr); err != nil {
		if errors.Is(err, server.ErrListen) {
			return fmt.Errorf("%w%s", err, hints.ForPortInUse(cfg.Server.Addr))
		}
		return err
	}

	stats := pool.Stats()
	logging.Info("Server stopped", "completed", stats.Completed, "failed", stats.Failed)
	return nil
}

// initServerLogging installs the process logger described by cfg.Log.
func initServerLogging(cfg *config.Config, env *Environment) {
	if cfg.Log.Format == "console" {
		logging.InitConsole(env.Stderr, cfg.Log.Level)
		return
	}
	logging.InitLogger(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays,
		cfg.Log.Compress, cfg.Log.Level)
}
