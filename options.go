package md2png

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-md2png/internal/pipeline"
)

// Rendering defaults.
const (
	// DefaultImageTimeout bounds how long a single image may take to settle.
	DefaultImageTimeout = 10 * time.Second

	// DefaultDeviceScaleFactor renders one device pixel per CSS pixel.
	// Use 2 for retina-sharp output.
	DefaultDeviceScaleFactor = 1.0

	// MaxDeviceScaleFactor caps the scale factor accepted by WithDeviceScaleFactor.
	MaxDeviceScaleFactor = 4.0
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds Converter settings that options may change.
type converterConfig struct {
	timeout        time.Duration
	imageTimeout   time.Duration
	scaleFactor    float64
	backend        string
	browserBin     string
	noSandbox      bool
	rawHTML        bool
	highlightStyle string
	assetPath      string
}

func defaultConfig() converterConfig {
	return converterConfig{
		imageTimeout:   DefaultImageTimeout,
		scaleFactor:    DefaultDeviceScaleFactor,
		backend:        BackendRod,
		rawHTML:        true,
		highlightStyle: pipeline.DefaultHighlightStyle,
	}
}

// WithTimeout bounds a whole render. Zero disables the bound and leaves only
// the caller's context in charge.
// Panics if d < 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d < 0 {
		panic("md2png: WithTimeout duration must not be negative")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithImageTimeout bounds the wait for each card image to load or fail.
// Zero waits for every image without a bound.
// Panics if d < 0.
func WithImageTimeout(d time.Duration) Option {
	if d < 0 {
		panic("md2png: WithImageTimeout duration must not be negative")
	}
	return func(c *Converter) {
		c.cfg.imageTimeout = d
	}
}

// WithDeviceScaleFactor sets device pixels per CSS pixel.
// Panics if f is not in (0, MaxDeviceScaleFactor].
func WithDeviceScaleFactor(f float64) Option {
	if f <= 0 || f > MaxDeviceScaleFactor {
		panic("md2png: WithDeviceScaleFactor must be in (0, 4]")
	}
	return func(c *Converter) {
		c.cfg.scaleFactor = f
	}
}

// WithLogger sets the logger for per-stage debug events and teardown failures.
// The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// WithLauncher replaces the browser launcher, e.g. with a fake in tests.
// Takes precedence over WithBrowser.
func WithLauncher(l Launcher) Option {
	return func(c *Converter) {
		c.launcher = l
	}
}

// WithBrowser selects the browser backend ("rod" or "chromedp") and an
// optional executable path. An empty bin auto-detects Chrome or Chromium.
func WithBrowser(backend, bin string) Option {
	return func(c *Converter) {
		c.cfg.backend = backend
		c.cfg.browserBin = bin
	}
}

// WithNoSandbox disables the Chrome sandbox, as containers and CI usually require.
func WithNoSandbox(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.noSandbox = enabled
	}
}

// WithRawHTML controls whether raw HTML in Markdown reaches the card.
// On by default; the synthesized document is still checked for a single
// screenshot target.
func WithRawHTML(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.rawHTML = enabled
	}
}

// WithHighlightStyle sets the chroma style for fenced code. Empty disables
// highlighting; a name chroma does not register makes NewConverter fail with
// ErrUnknownHighlightStyle.
func WithHighlightStyle(name string) Option {
	return func(c *Converter) {
		c.cfg.highlightStyle = name
	}
}

// WithAssetPath overrides the embedded card template and stylesheet with
// templates/card.html and styles/card.css from dir. Missing files fall back
// to the embedded ones.
func WithAssetPath(dir string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = dir
	}
}
