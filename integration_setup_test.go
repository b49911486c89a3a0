//go:build integration

package md2png

// Notes:
// - Integration tests drive a real Chrome or Chromium through both backends.
// - ROD_BROWSER_BIN selects the binary; tests skip when no browser is found.
// - A shared RenderPool caps concurrent browsers at 4 for CI environments.

import (
	"os"
	"testing"
	"time"
)

// testTimeout is the standard timeout for integration test operations.
const testTimeout = 60 * time.Second

// newIntegrationConverter creates a Converter for backend, skipping the test
// when no browser is installed.
func newIntegrationConverter(t *testing.T, backend string, opts ...Option) *Converter {
	t.Helper()

	base := []Option{
		WithBrowser(backend, os.Getenv("ROD_BROWSER_BIN")),
		WithNoSandbox(os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != ""),
		WithTimeout(testTimeout),
	}
	conv, err := NewConverter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	if err := conv.Available(); err != nil {
		t.Skipf("browser not available: %v", err)
	}
	return conv
}

// integrationPoolSize caps concurrent browsers in CI.
func integrationPoolSize() int {
	return min(ResolvePoolSize(0), 4)
}
