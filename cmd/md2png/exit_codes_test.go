package main

// Notes:
// - exitCodeFor: we test the sentinel errors from md2png, config, browser,
//   and server packages, plus wrapped errors to verify the errors.Is() chain.
// - Exit code constants: we verify Unix conventions (0=success, 1=general, 2=usage)
//   and custom codes are below 126.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/browser"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/server"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		// Success
		{"nil error", nil, ExitSuccess},

		// Browser errors (exit 4)
		{"browser unavailable", md2png.ErrBrowserUnavailable, ExitBrowser},
		{"browser connect", md2png.ErrBrowserConnect, ExitBrowser},
		{"page create", md2png.ErrPageCreate, ExitBrowser},
		{"page load", md2png.ErrPageLoad, ExitBrowser},
		{"image wait", md2png.ErrImageWait, ExitBrowser},
		{"screenshot", md2png.ErrScreenshot, ExitBrowser},
		{"render error wrapping connect", &md2png.RenderError{Kind: md2png.KindRenderFailure, Err: fmt.Errorf("%w: exec failed", md2png.ErrBrowserConnect)}, ExitBrowser},

		// Usage/config/validation errors (exit 2)
		{"usage", ErrUsage, ExitUsage},
		{"invalid extension", ErrInvalidExtension, ExitUsage},
		{"invalid worker count", ErrInvalidWorkerCount, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"empty config name", config.ErrEmptyConfigName, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"empty markdown", md2png.ErrEmptyMarkdown, ExitUsage},
		{"invalid asset path", md2png.ErrInvalidAssetPath, ExitUsage},
		{"unknown highlight style", md2png.ErrUnknownHighlightStyle, ExitUsage},
		{"unknown backend", browser.ErrUnknownBackend, ExitUsage},
		{"wrapped config parse", fmt.Errorf("loading: %w", config.ErrConfigParse), ExitUsage},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read markdown", ErrReadMarkdown, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"no markdown files", ErrNoMarkdownFiles, ExitIO},
		{"listen", server.ErrListen, ExitIO},
		{"wrapped file not exist", fmt.Errorf("reading: %w", os.ErrNotExist), ExitIO},

		// General errors (exit 1)
		{"template integrity", md2png.ErrTemplateIntegrity, ExitGeneral},
		{"deadline", context.DeadlineExceeded, ExitGeneral},
		{"unknown error", errors.New("something unexpected"), ExitGeneral},
		{"wrapped unknown", fmt.Errorf("context: %w", errors.New("unknown")), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 {
		t.Errorf("ExitSuccess = %d, want 0", ExitSuccess)
	}
	if ExitGeneral != 1 {
		t.Errorf("ExitGeneral = %d, want 1", ExitGeneral)
	}
	if ExitUsage != 2 {
		t.Errorf("ExitUsage = %d, want 2", ExitUsage)
	}

	codes := map[string]int{"ExitIO": ExitIO, "ExitBrowser": ExitBrowser}
	seen := map[int]bool{ExitSuccess: true, ExitGeneral: true, ExitUsage: true}
	for name, code := range codes {
		if code >= 126 {
			t.Errorf("%s = %d, must be < 126 (reserved by shells)", name, code)
		}
		if seen[code] {
			t.Errorf("%s = %d collides with another exit code", name, code)
		}
		seen[code] = true
	}
}
