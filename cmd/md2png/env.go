package main

import (
	"io"
	"os"
	"time"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

// renderService is what the commands need from a renderer: rendering plus
// a cheap check that the browser can be found.
type renderService interface {
	md2png.Renderer
	Available() error
}

// Compile-time interface implementation check.
var _ renderService = (*md2png.Converter)(nil)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment, and renderer construction.
type Environment struct {
	Now     func() time.Time
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// NewRenderer builds the renderer for the effective configuration.
	NewRenderer func(cfg *config.Config) (renderService, error)
}

// DefaultEnv returns the production environment backed by a real browser.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		NewRenderer: newConverter,
	}
}

// newConverter builds a Converter logging through the process logger.
func newConverter(cfg *config.Config) (renderService, error) {
	c, err := md2png.NewConverter(converterOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// converterOptions maps the render, browser, and asset sections of cfg to
// Converter options. Zero values keep the library defaults.
func converterOptions(cfg *config.Config) []md2png.Option {
	opts := []md2png.Option{
		md2png.WithTimeout(cfg.Render.Timeout.Std()),
		md2png.WithImageTimeout(cfg.Render.ImageTimeout.Std()),
		md2png.WithNoSandbox(cfg.Browser.NoSandbox),
		md2png.WithRawHTML(cfg.Render.RawHTML),
		md2png.WithLogger(logging.Logger()),
	}
	if cfg.Render.ScaleFactor > 0 {
		opts = append(opts, md2png.WithDeviceScaleFactor(cfg.Render.ScaleFactor))
	}
	if cfg.Browser.Backend != "" || cfg.Browser.Bin != "" {
		backend := cfg.Browser.Backend
		if backend == "" {
			backend = md2png.BackendRod
		}
		opts = append(opts, md2png.WithBrowser(backend, cfg.Browser.Bin))
	}
	if cfg.Render.HighlightStyle != "" {
		opts = append(opts, md2png.WithHighlightStyle(cfg.Render.HighlightStyle))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, md2png.WithAssetPath(cfg.Assets.BasePath))
	}
	return opts
}
