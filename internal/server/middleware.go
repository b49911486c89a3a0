package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

// apiKeyLocal is the fiber.Ctx locals key holding the validated API key.
const apiKeyLocal = "api_key"

const (
	msgUnauthorized    = "Missing or invalid API key."
	msgTooManyRequests = "Too many requests."
)

// registerMiddleware attaches global middleware to the app.
// store may be nil when rate limiting is disabled.
func registerMiddleware(app *fiber.App, cfg config.Config, store fiber.Storage, ready ReadinessChecker) {
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	origins := cfg.Server.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	app.Use(requestLogger())

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return ready == nil || ready.Available() == nil
		},
	}))

	if cfg.Auth.Enabled {
		app.Use(apiKeyAuth(cfg.Auth))
	}

	if cfg.RateLimit.Enabled && store != nil {
		app.Use(rateLimit(cfg.RateLimit, store))
	}
}

// isProtected reports whether path serves renders or internals, as opposed
// to the liveness endpoints.
func isProtected(path string) bool {
	return strings.HasPrefix(path, "/render") || path == "/stats" || path == "/monitor"
}

func apiKeyAuth(cfg config.AuthConfig) fiber.Handler {
	header := cfg.Header
	if header == "" {
		header = "X-API-Key"
	}
	keys := make([][]byte, len(cfg.Keys))
	for i, k := range cfg.Keys {
		keys[i] = []byte(k)
	}

	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + header,
		ContextKey: apiKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !isProtected(c.Path())
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logging.Warn("Rejected API key", "path", c.Path(), "ip", c.IP())
			return jsonError(c, fiber.StatusUnauthorized, msgUnauthorized)
		},
	})
}

func rateLimit(cfg config.RateLimitConfig, store fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               cfg.Max,
		Expiration:        cfg.Window.Std(),
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		Next: func(c *fiber.Ctx) bool {
			return !strings.HasPrefix(c.Path(), "/render")
		},
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "client", clientKey(c), "path", c.Path())
			return jsonError(c, fiber.StatusTooManyRequests, msgTooManyRequests)
		},
	})
}

// clientKey identifies a rate-limited client: the API key when one was
// validated, otherwise the remote IP. Keys are hashed before reaching storage.
func clientKey(c *fiber.Ctx) string {
	if key, ok := c.Locals(apiKeyLocal).(string); ok && key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:])
	}
	return "ip:" + c.IP()
}

// requestLogger logs one line per request once the response status is known.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			// Resolve the error now so the logged status is the one sent.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logging.Info("Request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return nil
	}
}
