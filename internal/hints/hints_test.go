package hints

// Notes:
// - Browser hint tests cannot use t.Parallel() because they:
//   1. Use t.Setenv() which modifies process environment
//   2. Modify the package-level IsInContainer variable
// These are acceptable gaps: we test observable behavior through environment manipulation.

import (
	"strings"
	"testing"
)

// clearBrowserEnv resets every variable the browser hints look at.
func clearBrowserEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL",
		"ROD_NO_SANDBOX", "MD2PNG_NO_SANDBOX",
		"ROD_BROWSER_BIN", "MD2PNG_BROWSER_BIN", "CHROME_BIN",
	} {
		t.Setenv(key, "")
	}
}

func stubContainer(t *testing.T, inside bool) {
	t.Helper()
	orig := IsInContainer
	t.Cleanup(func() { IsInContainer = orig })
	IsInContainer = func() bool { return inside }
}

// ---------------------------------------------------------------------------
// TestForBrowserConnect - Environment-aware launch hints
// ---------------------------------------------------------------------------

func TestForBrowserConnect(t *testing.T) {
	tests := []struct {
		name        string
		container   bool
		env         map[string]string
		contains    []string
		notContains []string
		wantEmpty   bool
	}{
		{
			name:     "in CI suggests sandbox and binary",
			env:      map[string]string{"CI": "true"},
			contains: []string{"hint:", "MD2PNG_NO_SANDBOX", "MD2PNG_BROWSER_BIN"},
		},
		{
			name:      "in Docker suggests sandbox",
			container: true,
			contains:  []string{"NO_SANDBOX"},
		},
		{
			name:        "rod sandbox already disabled",
			container:   true,
			env:         map[string]string{"ROD_NO_SANDBOX": "1"},
			notContains: []string{"NO_SANDBOX"},
			contains:    []string{"MD2PNG_BROWSER_BIN"},
		},
		{
			name:        "md2png sandbox already disabled",
			container:   true,
			env:         map[string]string{"MD2PNG_NO_SANDBOX": "true"},
			notContains: []string{"NO_SANDBOX"},
		},
		{
			name:        "binary already set",
			env:         map[string]string{"CHROME_BIN": "/usr/bin/chromium"},
			notContains: []string{"BROWSER_BIN"},
			wantEmpty:   true,
		},
		{
			name:      "container with everything configured",
			container: true,
			env:       map[string]string{"ROD_NO_SANDBOX": "1", "ROD_BROWSER_BIN": "/usr/bin/chromium"},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBrowserEnv(t)
			stubContainer(t, tt.container)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			hint := ForBrowserConnect()

			if tt.wantEmpty && hint != "" {
				t.Errorf("expected empty hint, got %q", hint)
			}
			for _, want := range tt.contains {
				if !strings.Contains(hint, want) {
					t.Errorf("hint %q missing %q", hint, want)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(hint, unwanted) {
					t.Errorf("hint %q should not contain %q", hint, unwanted)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestForBrowserUnavailable - Missing executable
// ---------------------------------------------------------------------------

func TestForBrowserUnavailable(t *testing.T) {
	t.Run("nothing configured suggests install", func(t *testing.T) {
		clearBrowserEnv(t)

		hint := ForBrowserUnavailable()
		if !strings.Contains(hint, "install Chrome") {
			t.Errorf("hint = %q, want install suggestion", hint)
		}
	})

	t.Run("configured binary suggests checking it", func(t *testing.T) {
		clearBrowserEnv(t)
		t.Setenv("MD2PNG_BROWSER_BIN", "/missing/chrome")

		hint := ForBrowserUnavailable()
		if !strings.Contains(hint, "does not exist") {
			t.Errorf("hint = %q, want check suggestion", hint)
		}
	})
}

// ---------------------------------------------------------------------------
// TestForConfigNotFound - Suggests the user config location
// ---------------------------------------------------------------------------

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		paths    []string
		contains string
	}{
		{
			name:     "empty paths",
			paths:    []string{},
			contains: "--config",
		},
		{
			name:     "unix user dir",
			paths:    []string{"./foo.yaml", "/home/me/.config/go-md2png/foo.yaml"},
			contains: "create /home/me/.config/go-md2png/foo.yaml",
		},
		{
			name:     "windows user dir",
			paths:    []string{`C:\Users\me\AppData\Roaming\go-md2png\foo.yaml`},
			contains: `create C:\Users\me\AppData\Roaming\go-md2png\foo.yaml`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hint := ForConfigNotFound(tt.paths)
			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestForPortInUse(t *testing.T) {
	t.Parallel()

	hint := ForPortInUse(":3000")
	if !strings.Contains(hint, ":3000") || !strings.Contains(hint, "--addr") {
		t.Errorf("hint = %q, want address and flag", hint)
	}
}

func TestFormat_Consistency(t *testing.T) {
	t.Parallel()

	// All hints should start with newline, spaces, and "hint:"
	hints := []string{
		ForTimeout(),
		ForOutputDirectory(),
		ForAssetPath(),
		ForPortInUse(":80"),
		ForConfigNotFound(nil),
	}

	for _, h := range hints {
		if !strings.HasPrefix(h, "\n  hint: ") {
			t.Errorf("hint format inconsistent: %q", h)
		}
	}
	if formatHints(nil) != "" {
		t.Error("formatHints(nil) should be empty")
	}
}
