package main

import (
	"context"
	"errors"
	"strings"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/hints"
)

// hintFor returns an actionable hint for err, or "" when none applies.
func hintFor(err error) string {
	switch {
	case errors.Is(err, md2png.ErrBrowserUnavailable):
		return hints.ForBrowserUnavailable()
	case errors.Is(err, md2png.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	case errors.Is(err, md2png.ErrInvalidAssetPath):
		return hints.ForAssetPath()
	}
	return ""
}

// triedPaths extracts the "tried a, b" list from a config lookup error.
func triedPaths(err error) []string {
	msg := err.Error()
	i := strings.LastIndex(msg, "tried ")
	if i < 0 {
		return nil
	}
	return strings.Split(msg[i+len("tried "):], ", ")
}
