package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// Backend names accepted by New.
const (
	BackendRod      = "rod"
	BackendChromedp = "chromedp"
)

// Sentinel errors for browser operations.
var (
	ErrUnavailable    = errors.New("browser not available")
	ErrLaunch         = errors.New("browser launch failed")
	ErrUnknownBackend = errors.New("unknown browser backend")
)

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
}

// Options configures how the browser process is started.
type Options struct {
	// Bin is an explicit browser executable. Empty means auto-detect.
	Bin string
	// NoSandbox disables the Chrome sandbox (containers, CI).
	NoSandbox bool
}

// Launcher starts browser sessions.
type Launcher interface {
	// Available reports whether a browser can be launched at all.
	Available() error
	// Launch starts a new browser process dedicated to the caller.
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser process.
type Session interface {
	NewPage(ctx context.Context, vp Viewport) (Page, error)
	// Close terminates the browser process. Safe to call more than once.
	Close() error
}

// Page is a single tab with a transparent default background.
type Page interface {
	// SetContent replaces the document and returns once the DOM is ready.
	// Subresources such as images may still be loading.
	SetContent(ctx context.Context, html string) error
	// Evaluate runs a JavaScript function expression, awaits the promise it
	// returns, and yields the result as JSON.
	Evaluate(ctx context.Context, fn string) ([]byte, error)
	// QuerySelector returns the first element matching sel, or nil, nil if none.
	QuerySelector(ctx context.Context, sel string) (Element, error)
}

// Element is a node of the current document.
type Element interface {
	// Screenshot captures the element's box as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// New returns the Launcher for the named backend. Empty selects rod.
func New(backend string, opts Options) (Launcher, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendRod:
		return NewRodLauncher(opts), nil
	case BackendChromedp:
		return NewChromedpLauncher(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownBackend, backend, BackendRod, BackendChromedp)
	}
}

// LookPath resolves the browser executable. An explicit bin must exist
// (absolute path or name on PATH); otherwise the usual Chrome and Chromium
// install locations are searched.
func LookPath(bin string) (string, error) {
	if bin != "" {
		if info, err := os.Stat(bin); err == nil && !info.IsDir() {
			return bin, nil
		}
		if path, err := exec.LookPath(bin); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s not found", ErrUnavailable, bin)
	}

	path, found := launcher.LookPath()
	if !found {
		return "", fmt.Errorf("%w: no Chrome or Chromium installation found", ErrUnavailable)
	}
	return path, nil
}
