package main

import (
	"errors"
	"os"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/browser"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/server"
)

// Exit codes for md2png CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful render
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied, address in use
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, md2png.ErrBrowserUnavailable) ||
		errors.Is(err, md2png.ErrBrowserConnect) ||
		errors.Is(err, md2png.ErrPageCreate) ||
		errors.Is(err, md2png.ErrPageLoad) ||
		errors.Is(err, md2png.ErrImageWait) ||
		errors.Is(err, md2png.ErrScreenshot) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, md2png.ErrEmptyMarkdown) ||
		errors.Is(err, md2png.ErrInvalidAssetPath) ||
		errors.Is(err, md2png.ErrUnknownHighlightStyle) ||
		errors.Is(err, browser.ErrUnknownBackend) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoMarkdownFiles) ||
		errors.Is(err, server.ErrListen) {
		return ExitIO
	}

	return ExitGeneral
}
