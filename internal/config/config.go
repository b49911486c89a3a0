package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-md2png/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxAddrLength      = 255  // host:port
	MaxColorLength     = 256  // CSS color or gradient expression
	MaxPathLength      = 4096 // PATH_MAX on Linux
	MaxStyleNameLength = 64   // chroma style name
	MaxAPIKeyLength    = 256
)

// Value limits.
const (
	MaxWidth           = 16384 // Chrome's maximum texture size
	MaxScaleFactor     = 4.0
	MaxWorkers         = 8
	MaxBodyLimitMB     = 64
	DefaultBodyLimitMB = 4
)

// Supported values for enumerated fields.
var (
	validBackends = []string{"rod", "chromedp"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"json", "console"}
	validStorages = []string{"memory", "redis"}
)

// Duration is a time.Duration written as "30s" or "1m30s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	} else {
		s = strings.Trim(s, "'")
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all configuration for the renderer, the HTTP service and the CLI.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Render    RenderConfig    `yaml:"render"`
	Browser   BrowserConfig   `yaml:"browser"`
	Assets    AssetsConfig    `yaml:"assets"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig defines HTTP service options.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`         // Listen address (default ":3000")
	BodyLimitMB  int      `yaml:"bodyLimitMB"`  // Max request body (default 4)
	ReadTimeout  Duration `yaml:"readTimeout"`  // 0 = no limit
	WriteTimeout Duration `yaml:"writeTimeout"` // 0 = no limit
	CORSOrigins  string   `yaml:"corsOrigins"`  // Comma-separated, "*" allows all
	Workers      int      `yaml:"workers"`      // Concurrent renders (0 = auto)
	Monitor      bool     `yaml:"monitor"`      // Expose /monitor (fiber metrics page)
}

// RenderConfig defines defaults applied to every render.
type RenderConfig struct {
	Timeout         Duration `yaml:"timeout"`         // Whole-render budget (0 = none)
	ImageTimeout    Duration `yaml:"imageTimeout"`    // Per-image load wait
	ScaleFactor     float64  `yaml:"scaleFactor"`     // Device pixel ratio (default 1)
	Width           int      `yaml:"width"`           // Card width in px (0 = built-in default)
	CardBackground  string   `yaml:"cardBackground"`  // Empty = built-in default
	OuterBackground string   `yaml:"outerBackground"` // Empty = derived from card
	RawHTML         bool     `yaml:"rawHTML"`         // Pass raw HTML in Markdown through
	HighlightStyle  string   `yaml:"highlightStyle"`  // Chroma style ("" = github)
}

// BrowserConfig selects the browser automation backend.
type BrowserConfig struct {
	Backend   string `yaml:"backend"`   // "rod" (default) or "chromedp"
	Bin       string `yaml:"bin"`       // Chrome/Chromium executable ("" = auto)
	NoSandbox bool   `yaml:"noSandbox"` // Required in most containers
}

// AssetsConfig defines custom asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// LogConfig defines logging options.
type LogConfig struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // json or console
	File       string `yaml:"file"`       // Empty = stderr
	MaxSizeMB  int    `yaml:"maxSizeMB"`  // Rotation threshold
	MaxBackups int    `yaml:"maxBackups"` // Rotated files kept
	MaxAgeDays int    `yaml:"maxAgeDays"` // Rotated file retention
	Compress   bool   `yaml:"compress"`   // Gzip rotated files
}

// RateLimitConfig defines per-client request limiting for the HTTP service.
type RateLimitConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Max       int      `yaml:"max"`       // Requests per window
	Window    Duration `yaml:"window"`    // Sliding window length
	Storage   string   `yaml:"storage"`   // memory or redis
	RedisAddr string   `yaml:"redisAddr"` // host:port when storage is redis
	RedisDB   int      `yaml:"redisDB"`
}

// AuthConfig defines optional API key authentication for /render.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Header  string   `yaml:"header"` // Header carrying the key (default X-API-Key)
	Keys    []string `yaml:"keys"`
}

// Validate checks that all config values are within acceptable limits.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	return c.validateAuth()
}

func (c *Config) validateServer() error {
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.BodyLimitMB < 0 || c.Server.BodyLimitMB > MaxBodyLimitMB {
		return fmt.Errorf("%w: server.bodyLimitMB must be between 0 and %d, got %d",
			ErrInvalidValue, MaxBodyLimitMB, c.Server.BodyLimitMB)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("%w: server timeouts cannot be negative", ErrInvalidValue)
	}
	if c.Server.Workers < 0 || c.Server.Workers > MaxWorkers {
		return fmt.Errorf("%w: server.workers must be between 0 and %d, got %d",
			ErrInvalidValue, MaxWorkers, c.Server.Workers)
	}
	return nil
}

func (c *Config) validateRender() error {
	r := c.Render
	if r.Timeout < 0 {
		return fmt.Errorf("%w: render.timeout cannot be negative", ErrInvalidValue)
	}
	if r.ImageTimeout < 0 {
		return fmt.Errorf("%w: render.imageTimeout cannot be negative", ErrInvalidValue)
	}
	if r.ScaleFactor < 0 || r.ScaleFactor > MaxScaleFactor {
		return fmt.Errorf("%w: render.scaleFactor must be between 0 and %g, got %g",
			ErrInvalidValue, MaxScaleFactor, r.ScaleFactor)
	}
	if r.Width < 0 || r.Width > MaxWidth {
		return fmt.Errorf("%w: render.width must be between 0 and %d, got %d",
			ErrInvalidValue, MaxWidth, r.Width)
	}
	if err := validateFieldLength("render.cardBackground", r.CardBackground, MaxColorLength); err != nil {
		return err
	}
	if err := validateFieldLength("render.outerBackground", r.OuterBackground, MaxColorLength); err != nil {
		return err
	}
	return validateFieldLength("render.highlightStyle", r.HighlightStyle, MaxStyleNameLength)
}

func (c *Config) validateBrowser() error {
	if c.Browser.Backend != "" && !oneOf(c.Browser.Backend, validBackends) {
		return fmt.Errorf("%w: browser.backend %q (must be %s)",
			ErrInvalidValue, c.Browser.Backend, strings.Join(validBackends, " or "))
	}
	return validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength)
}

func (c *Config) validateLog() error {
	l := c.Log
	if l.Level != "" && !oneOf(strings.ToLower(l.Level), validLevels) {
		return fmt.Errorf("%w: log.level %q (must be one of %s)",
			ErrInvalidValue, l.Level, strings.Join(validLevels, ", "))
	}
	if l.Format != "" && !oneOf(l.Format, validFormats) {
		return fmt.Errorf("%w: log.format %q (must be json or console)", ErrInvalidValue, l.Format)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation values cannot be negative", ErrInvalidValue)
	}
	return validateFieldLength("log.file", l.File, MaxPathLength)
}

func (c *Config) validateRateLimit() error {
	rl := c.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.Max <= 0 {
		return fmt.Errorf("%w: rateLimit.max must be positive when enabled, got %d", ErrInvalidValue, rl.Max)
	}
	if rl.Window <= 0 {
		return fmt.Errorf("%w: rateLimit.window must be positive when enabled", ErrInvalidValue)
	}
	if rl.Storage != "" && !oneOf(rl.Storage, validStorages) {
		return fmt.Errorf("%w: rateLimit.storage %q (must be memory or redis)", ErrInvalidValue, rl.Storage)
	}
	if rl.Storage == "redis" && rl.RedisAddr == "" {
		return fmt.Errorf("%w: rateLimit.redisAddr is required when storage is redis", ErrInvalidValue)
	}
	if rl.RedisDB < 0 {
		return fmt.Errorf("%w: rateLimit.redisDB cannot be negative", ErrInvalidValue)
	}
	return validateFieldLength("rateLimit.redisAddr", rl.RedisAddr, MaxAddrLength)
}

func (c *Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	if len(c.Auth.Keys) == 0 {
		return fmt.Errorf("%w: auth.keys must not be empty when auth is enabled", ErrInvalidValue)
	}
	for i, key := range c.Auth.Keys {
		if key == "" {
			return fmt.Errorf("%w: auth.keys[%d] is empty", ErrInvalidValue, i)
		}
		if err := validateFieldLength(fmt.Sprintf("auth.keys[%d]", i), key, MaxAPIKeyLength); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":3000",
			BodyLimitMB: DefaultBodyLimitMB,
			CORSOrigins: "*",
		},
		Render: RenderConfig{
			Timeout:      Duration(30 * time.Second),
			ImageTimeout: Duration(10 * time.Second),
			ScaleFactor:  1,
			RawHTML:      true,
		},
		Browser: BrowserConfig{Backend: "rod"},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		RateLimit: RateLimitConfig{
			Max:     60,
			Window:  Duration(time.Minute),
			Storage: "memory",
		},
		Auth: AuthConfig{Header: "X-API-Key"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(configPath, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-md2png/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-md2png", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
