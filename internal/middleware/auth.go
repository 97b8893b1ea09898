package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/autowriter/internal/logger"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator is a function to validate the token.
	// Required.
	Validator func(token string) (bool, error)

	// ErrorHandler is executed for a missing or invalid token.
	// Optional. Default: 401 with a JSON error
	ErrorHandler fiber.ErrorHandler

	// ContextKey stores the accepted token in c.Locals.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header carries the token. A "Bearer " prefix is stripped.
	// Optional. Default: "Authorization"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing credentials",
		})
	},
	ContextKey: "apiKey",
	Header:     fiber.HeaderAuthorization,
}

// NewAuth creates a new middleware handler
func NewAuth(config AuthConfig) fiber.Handler {
	cfg := config
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = ConfigDefault.ContextKey
	}
	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		authHeader := c.Get(cfg.Header)
		if authHeader == "" {
			return cfg.ErrorHandler(c, errors.New("missing credentials"))
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errors.New("invalid credentials"))
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// matches compares secrets in constant time
func matches(secret string) func(string) (bool, error) {
	return func(token string) (bool, error) {
		return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1, nil
	}
}

// CronAuth protects the time-triggered endpoints with "Authorization: Bearer <secret>".
// An empty secret disables the check, which configuration only allows outside production.
func CronAuth(secret string) fiber.Handler {
	return NewAuth(AuthConfig{
		Next:      func(*fiber.Ctx) bool { return secret == "" },
		Validator: matches(secret),
	})
}

// AdminOnly checks the X-API-Key header against adminKey. An empty key
// disables the check, which configuration only allows outside production.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminKey == "" {
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Admin access attempt without API key")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}

		if ok, _ := matches(adminKey)(apiKey); !ok {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}
