package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/bilgisen/autowriter/internal/bulk"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/middleware"
	"github.com/bilgisen/autowriter/internal/models"
)

type startBulkRequest struct {
	Sites   []bulk.Request           `json:"sites" validate:"required,min=1,max=50,dive"`
	Options models.GenerationOptions `json:"options"`
}

// StartBulkRun handles POST /api/bulk/runs
func (h *Handlers) StartBulkRun(c *fiber.Ctx) error {
	req := middleware.Validated[startBulkRequest](c)

	opts, err := models.NewGenerationOptions(req.Options)
	if err != nil {
		return err
	}

	plan, err := h.bulk.Start(c.UserContext(), req.Sites, opts)
	if errors.Is(err, bulk.ErrRunInProgress) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}

	logger.Get().Info().
		Int("tasks", len(plan.Tasks)).
		Int("total", plan.Total).
		Int("prep_errors", len(plan.Errors)).
		Msg("Bulk run accepted")
	return c.Status(fiber.StatusAccepted).JSON(plan)
}

// CurrentBulkRun handles GET /api/bulk/runs/current
func (h *Handlers) CurrentBulkRun(c *fiber.Ctx) error {
	snap, err := h.bulk.Current()
	if errors.Is(err, bulk.ErrNoRun) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// CancelBulkRun handles POST /api/bulk/runs/current/cancel
func (h *Handlers) CancelBulkRun(c *fiber.Ctx) error {
	if err := h.bulk.Cancel(); err != nil {
		if errors.Is(err, bulk.ErrNoRun) {
			return fiber.NewError(fiber.StatusNotFound, "no bulk run in progress")
		}
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "cancelling",
		"message": "The run stops after the current step",
	})
}

// StreamBulkRun handles GET /api/bulk/runs/current/stream as server-sent
// events, one event per progress change, ending with the final snapshot
func (h *Handlers) StreamBulkRun(c *fiber.Ctx) error {
	updates, unsubscribe, err := h.bulk.Subscribe()
	if errors.Is(err, bulk.ErrNoRun) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		for snap := range updates {
			payload, err := json.Marshal(snap)
			if err != nil {
				logger.Get().Error().Err(err).Msg("Failed to encode progress")
				return
			}
			event := "progress"
			if !snap.IsRunning {
				event = "done"
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
				return
			}
			// a failed flush means the client went away
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
