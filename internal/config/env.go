package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix shared by every md2png environment variable.
const EnvPrefix = "MD2PNG_"

// Browser variables honored for compatibility with go-rod and chromedp setups.
const (
	EnvRodBrowserBin = "ROD_BROWSER_BIN"
	EnvRodNoSandbox  = "ROD_NO_SANDBOX"
	EnvChromeBin     = "CHROME_BIN"
)

// knownEnvVars lists valid MD2PNG_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MD2PNG_CONFIG":           true,
	"MD2PNG_ADDR":             true,
	"MD2PNG_WORKERS":          true,
	"MD2PNG_TIMEOUT":          true,
	"MD2PNG_IMAGE_TIMEOUT":    true,
	"MD2PNG_SCALE_FACTOR":     true,
	"MD2PNG_WIDTH":            true,
	"MD2PNG_BACKEND":          true,
	"MD2PNG_BROWSER_BIN":      true,
	"MD2PNG_NO_SANDBOX":       true,
	"MD2PNG_ASSETS":           true,
	"MD2PNG_LOG_LEVEL":        true,
	"MD2PNG_LOG_FORMAT":       true,
	"MD2PNG_LOG_FILE":         true,
	"MD2PNG_RATE_LIMIT":       true,
	"MD2PNG_REDIS_ADDR":       true,
	"MD2PNG_API_KEYS":         true,
	"MD2PNG_HIGHLIGHT_STYLE":  true,
	"MD2PNG_RAW_HTML":         true,
	"MD2PNG_CARD_BACKGROUND":  true,
	"MD2PNG_OUTER_BACKGROUND": true,
}

// WarnUnknownEnvVars writes a warning for each unrecognized MD2PNG_* variable
// found in environ (formatted as os.Environ returns it).
func WarnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, EnvPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// ApplyEnv overrides cfg with values found through getenv.
// Set variables win over the config file; CLI flags are applied afterwards
// by the caller. A malformed value is reported with the variable name and
// leaves cfg partially updated.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str("MD2PNG_ADDR", &cfg.Server.Addr)
	str("MD2PNG_BACKEND", &cfg.Browser.Backend)
	str("MD2PNG_ASSETS", &cfg.Assets.BasePath)
	str("MD2PNG_LOG_LEVEL", &cfg.Log.Level)
	str("MD2PNG_LOG_FORMAT", &cfg.Log.Format)
	str("MD2PNG_LOG_FILE", &cfg.Log.File)
	str("MD2PNG_HIGHLIGHT_STYLE", &cfg.Render.HighlightStyle)
	str("MD2PNG_CARD_BACKGROUND", &cfg.Render.CardBackground)
	str("MD2PNG_OUTER_BACKGROUND", &cfg.Render.OuterBackground)

	// Browser binary: the md2png variable wins over the backend-specific ones.
	for _, key := range []string{EnvChromeBin, EnvRodBrowserBin, "MD2PNG_BROWSER_BIN"} {
		str(key, &cfg.Browser.Bin)
	}

	for _, key := range []string{EnvRodNoSandbox, "MD2PNG_NO_SANDBOX"} {
		if err := envBool(getenv, key, &cfg.Browser.NoSandbox); err != nil {
			return err
		}
	}
	if err := envBool(getenv, "MD2PNG_RAW_HTML", &cfg.Render.RawHTML); err != nil {
		return err
	}
	if err := envInt(getenv, "MD2PNG_WORKERS", &cfg.Server.Workers); err != nil {
		return err
	}
	if err := envInt(getenv, "MD2PNG_WIDTH", &cfg.Render.Width); err != nil {
		return err
	}
	if err := envDuration(getenv, "MD2PNG_TIMEOUT", &cfg.Render.Timeout); err != nil {
		return err
	}
	if err := envDuration(getenv, "MD2PNG_IMAGE_TIMEOUT", &cfg.Render.ImageTimeout); err != nil {
		return err
	}
	if v := getenv("MD2PNG_SCALE_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: MD2PNG_SCALE_FACTOR=%q is not a number", ErrInvalidValue, v)
		}
		cfg.Render.ScaleFactor = f
	}

	// MD2PNG_RATE_LIMIT takes "<max>/<window>", e.g. "60/1m". "off" disables.
	if v := getenv("MD2PNG_RATE_LIMIT"); v != "" {
		if err := parseRateLimit(v, &cfg.RateLimit); err != nil {
			return err
		}
	}
	if v := getenv("MD2PNG_REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
		cfg.RateLimit.Storage = "redis"
	}

	// Auto-enable auth when keys are provided.
	if v := getenv("MD2PNG_API_KEYS"); v != "" {
		cfg.Auth.Keys = splitList(v)
		cfg.Auth.Enabled = len(cfg.Auth.Keys) > 0
	}

	return nil
}

func envBool(getenv func(string) string, key string, dst *bool) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v)
	}
	*dst = b
	return nil
}

func envInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v)
	}
	*dst = n
	return nil
}

func envDuration(getenv func(string) string, key string, dst *Duration) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidValue, key, v)
	}
	*dst = Duration(d)
	return nil
}

func parseRateLimit(v string, rl *RateLimitConfig) error {
	if strings.EqualFold(v, "off") {
		rl.Enabled = false
		return nil
	}
	maxStr, windowStr, ok := strings.Cut(v, "/")
	if !ok {
		return fmt.Errorf("%w: MD2PNG_RATE_LIMIT=%q (want <max>/<window>, e.g. 60/1m)", ErrInvalidValue, v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(maxStr))
	if err != nil {
		return fmt.Errorf("%w: MD2PNG_RATE_LIMIT max %q is not an integer", ErrInvalidValue, maxStr)
	}
	d, err := time.ParseDuration(strings.TrimSpace(windowStr))
	if err != nil {
		return fmt.Errorf("%w: MD2PNG_RATE_LIMIT window %q is not a duration", ErrInvalidValue, windowStr)
	}
	rl.Enabled = true
	rl.Max = n
	rl.Window = Duration(d)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
