package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/autowriter/internal/models"
)

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"valid bearer", "s3cret", "Bearer s3cret", http.StatusOK},
		{"raw token", "s3cret", "s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"no secret configured", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", CronAuth(tt.secret), func(c *fiber.Ctx) error { return c.SendString("ok") })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, _ := send(t, app, req)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	app := fiber.New()
	app.Get("/", AdminOnly("key"), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, _ := send(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "other")
	resp, _ = send(t, app, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "key")
	resp, _ = send(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type payload struct {
	Name  string   `json:"name" validate:"required"`
	Count int      `json:"count" validate:"min=1"`
	Tags  []string `json:"tags" validate:"dive,min=2"`
}

func TestValidateRequest(t *testing.T) {
	app := fiber.New()
	app.Post("/", ValidateRequest[payload](), func(c *fiber.Ctx) error {
		return c.SendString(Validated[payload](c).Name)
	})

	post := func(body string) (*http.Response, string) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return send(t, app, req)
	}

	resp, body := post(`{"name":"a","count":1,"tags":["go"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a", body)

	resp, body = post(`{"count":0,"tags":["x"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `"name":"required"`)
	assert.Contains(t, body, `"count":"min"`)
	assert.Contains(t, body, `"tags[0]":"min"`)

	resp, _ = post(`{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// a second request must not see the first one's fields
	resp, body = post(`{"name":"b","count":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b", body)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"fiber error", fiber.NewError(http.StatusConflict, "busy"), http.StatusConflict, "busy"},
		{"not found", fmt.Errorf("site x: %w", models.ErrNotFound), http.StatusNotFound, "site x: not found"},
		{"bad options", models.ErrInvalidOptions, http.StatusUnprocessableEntity, "invalid generation options"},
		{"transition", models.ErrInvalidTransition, http.StatusConflict, "invalid status transition"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Contains(t, body, tt.wantBody)
			assert.NotContains(t, body, "pq:")
		})
	}
}

func TestRequestLoggerAssignsID(t *testing.T) {
	app := fiber.New()
	app.Use(NewLogger(LoggerConfig{NewID: func() string { return "req-1" }}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestID(c)) })

	resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "req-1", body)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	resp, body = send(t, app, req)
	assert.Equal(t, "client-id", body)
	assert.Equal(t, "client-id", resp.Header.Get(RequestIDHeader))
}
