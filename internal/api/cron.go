package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/autowriter/internal/logger"
)

// RunGeneratePass handles /api/cron/generate
func (h *Handlers) RunGeneratePass(c *fiber.Ctx) error {
	report, err := h.generate.Run(c.UserContext(), h.now())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Generate pass failed")
		return err
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"generated":      report.Generated,
		"active_configs": report.ActiveConfigs,
		"sites":          report.Sites,
	})
}

// RunPublishPass handles /api/cron/publish
func (h *Handlers) RunPublishPass(c *fiber.Ctx) error {
	report, err := h.publish.Run(c.UserContext(), h.now())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Publish pass failed")
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"published": report.Published,
		"total":     report.Total,
		"errors":    report.Errors,
	})
}

// RunSweep handles /api/cron/sweep
func (h *Handlers) RunSweep(c *fiber.Ctx) error {
	report, err := h.sweeper.Sweep(c.UserContext(), h.now())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Sweep failed")
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"reset":    report.Reset,
		"keywords": report.Keywords,
	})
}
