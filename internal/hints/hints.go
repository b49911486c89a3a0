// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-md2png/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

func sandboxDisabled() bool {
	return os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("MD2PNG_NO_SANDBOX") == "true" ||
		os.Getenv("MD2PNG_NO_SANDBOX") == "1"
}

func browserBinSet() bool {
	return os.Getenv("MD2PNG_BROWSER_BIN") != "" ||
		os.Getenv("ROD_BROWSER_BIN") != "" ||
		os.Getenv("CHROME_BIN") != ""
}

// ForBrowserUnavailable returns hints when no Chrome/Chromium executable was found.
func ForBrowserUnavailable() string {
	if browserBinSet() {
		return format("the configured browser binary does not exist; check MD2PNG_BROWSER_BIN, ROD_BROWSER_BIN and CHROME_BIN")
	}
	return format("install Chrome or Chromium, or point MD2PNG_BROWSER_BIN (--browser-bin) at one")
}

// ForBrowserConnect returns hints for browser launch and connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (inCI() || IsInContainer()) && !sandboxDisabled() {
		hints = append(hints, "set MD2PNG_NO_SANDBOX=1 (or ROD_NO_SANDBOX=1) for Docker/CI")
	}
	if !browserBinSet() {
		hints = append(hints, "set MD2PNG_BROWSER_BIN to use a specific Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeouts for slow renders.
func ForTimeout() string {
	return format("slow remote images count against the budget; raise --timeout or --image-timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-md2png/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "go-md2png/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForAssetPath returns hints for an unusable custom asset directory.
func ForAssetPath() string {
	return format("the directory must exist and may contain styles/card.css and templates/card.html")
}

// ForPortInUse returns hints when the HTTP listener cannot bind.
func ForPortInUse(addr string) string {
	return format("another process is listening on " + addr + "; use --addr or MD2PNG_ADDR")
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
