package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
)

const validatedKey = "validated"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator reporting fields by their json names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate validates s against its struct tags
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

var defaultValidator = NewValidator()

// ValidateRequest parses the body into a fresh T per request, validates it
// and stores it for Validated
func ValidateRequest[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
				"msg":   err.Error(),
			})
		}

		if err := defaultValidator.Validate(body); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			fields := make(map[string]string)
			for _, fe := range verrs {
				// drop the Go type name, keep the json path
				parts := strings.SplitN(fe.Namespace(), ".", 2)
				fields[parts[len(parts)-1]] = fe.Tag()
			}

			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fields,
			})
		}

		c.Locals(validatedKey, body)
		return c.Next()
	}
}

// Validated returns the body stored by ValidateRequest[T]
func Validated[T any](c *fiber.Ctx) *T {
	body, _ := c.Locals(validatedKey).(*T)
	return body
}

// ErrorHandler renders errors as {"error": ...}. Domain sentinels map to
// client statuses; anything else is a 500 without internal details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := ""

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, models.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidOptions):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidTransition):
		code = fiber.StatusConflict
	}

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("request_id", RequestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
		message = http.StatusText(code)
	} else if message == "" {
		message = err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
