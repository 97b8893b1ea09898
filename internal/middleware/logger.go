package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Logger is the zerolog logger instance to use.
	// Optional. Default: the "http" component logger
	Logger *zerolog.Logger

	// Fields to include in the logs
	Fields []string

	// NewID generates request ids when the client sent none.
	// Optional. Default: uuid.NewString
	NewID func() string
}

// DefaultLoggerConfig is the default config
var DefaultLoggerConfig = LoggerConfig{
	Fields: []string{"latency", "status", "method", "path", "ip", "site_id"},
	NewID:  uuid.NewString,
}

// NewLogger creates a new middleware handler. Every request gets an id,
// echoed in X-Request-ID. 5xx responses log at error level and 4xx at warn.
// Event streams log when they open since their latency is the run length.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	cfg := DefaultLoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = DefaultLoggerConfig.Fields
	}
	if cfg.NewID == nil {
		cfg.NewID = DefaultLoggerConfig.NewID
	}
	if cfg.Logger == nil {
		log := logger.Component("http")
		cfg.Logger = &log
	}

	fields := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		fields[f] = true
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		id := c.Get(RequestIDHeader)
		if id == "" {
			id = cfg.NewID()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = cfg.Logger.Error()
		case status >= fiber.StatusBadRequest:
			event = cfg.Logger.Warn()
		default:
			event = cfg.Logger.Info()
		}
		event = event.Str("request_id", id)

		if fields["method"] {
			event = event.Str("method", c.Method())
		}
		if fields["path"] {
			event = event.Str("path", c.Path())
		}
		if fields["status"] {
			event = event.Int("status", status)
		}
		if fields["ip"] {
			event = event.Str("ip", c.IP())
		}
		if fields["site_id"] {
			if strings.HasPrefix(c.Route().Path, "/api/sites/") {
				site := c.Params("id")
				event = event.Str("site_id", site)
			}
		}
		if fields["latency"] {
			event = event.Dur("latency", time.Since(start))
		}
		if err != nil {
			event = event.Err(err)
		}

		msg := "request"
		if string(c.Response().Header.ContentType()) == "text/event-stream" {
			msg = "stream opened"
		}
		event.Msg(msg)
		return err
	}
}

// RequestID returns the id NewLogger assigned to the request
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// RequestLogger logs every request except health checks
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/health" },
	})
}
