package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

// ErrListen is returned by Run when the listener cannot be opened.
var ErrListen = errors.New("listening failed")

// ShutdownTimeout bounds graceful shutdown once the run context is done.
const ShutdownTimeout = 5 * time.Second

// StatsProvider reports render pool activity for /stats.
type StatsProvider interface {
	Stats() md2png.PoolStats
}

// ReadinessChecker reports whether renders can currently succeed.
type ReadinessChecker interface {
	Available() error
}

// Deps bundles what the HTTP layer needs.
type Deps struct {
	Config   config.Config
	Renderer md2png.Renderer

	// Stats backs /stats. Nil reports the pool as disabled.
	Stats StatsProvider
	// Ready backs /readyz. Nil is always ready.
	Ready ReadinessChecker
	// Storage backs the rate limiter. Nil builds one from Config.RateLimit.
	Storage fiber.Storage
}

// New creates the fiber app with middleware and routes registered.
func New(d Deps) *fiber.App {
	cfg := d.Config

	bodyLimit := cfg.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = config.DefaultBodyLimitMB
	}

	app := fiber.New(fiber.Config{
		AppName:               "md2png",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit << 20,
		ReadTimeout:           cfg.Server.ReadTimeout.Std(),
		WriteTimeout:          cfg.Server.WriteTimeout.Std(),
		ErrorHandler:          errorHandler,
	})

	store := d.Storage
	if store == nil && cfg.RateLimit.Enabled {
		store = NewStore(cfg.RateLimit)
	}

	registerMiddleware(app, cfg, store, d.Ready)
	registerRoutes(app, cfg, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func registerRoutes(app *fiber.App, cfg config.Config, d Deps) {
	h := &handler{renderer: d.Renderer, stats: d.Stats, defaults: cfg.Render}

	app.Get("/", h.health)
	app.Post("/render", h.renderJSON)
	app.Get("/render", h.renderQuery)
	app.Get("/stats", h.poolStats)

	if cfg.Server.Monitor {
		app.Get("/monitor", monitor.New(monitor.Config{Title: "md2png"}))
	}
}

// errorHandler turns any error that reaches fiber into {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgRenderFailed

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed", "path", c.Path(), "status", code, "error", err)
	} else {
		logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// Run serves app on addr until ctx is done, then shuts down gracefully.
// A listener failure wraps ErrListen.
func Run(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	logging.Info("Server listening", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w on %s: %w", ErrListen, addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Warn("Shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logging.Info("Server stopped cleanly")
	return nil
}
