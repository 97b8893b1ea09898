package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/autowriter/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api")

	api.Get("/health", h.HealthCheck)

	// Time-triggered passes, GET for schedulers that cannot POST
	cron := api.Group("/cron", middleware.CronAuth(h.config.CronSecret))
	{
		cron.Get("/generate", h.RunGeneratePass)
		cron.Post("/generate", h.RunGeneratePass)
		cron.Get("/publish", h.RunPublishPass)
		cron.Post("/publish", h.RunPublishPass)
		cron.Get("/sweep", h.RunSweep)
		cron.Post("/sweep", h.RunSweep)
	}

	adminOnly := middleware.AdminOnly(h.config.AdminAPIKey)

	sites := api.Group("/sites", adminOnly)
	{
		sites.Get("", h.ListSites)
		sites.Get("/:id/scheduler", h.GetScheduler)
		sites.Put("/:id/scheduler", middleware.ValidateRequest[schedulerRequest](), h.PutScheduler)
		sites.Post("/:id/keywords/import", middleware.ValidateRequest[importRequest](), h.ImportKeywords)
		sites.Get("/:id/activity", h.SiteActivity)
	}

	api.Patch("/keywords/status", adminOnly, middleware.ValidateRequest[keywordStatusRequest](), h.SetKeywordStatus)

	articles := api.Group("/articles", adminOnly)
	{
		articles.Post("/:id/ready", h.MarkArticleReady)
		articles.Post("/:id/unpublish", h.UnpublishArticle)
	}

	runs := api.Group("/bulk/runs", adminOnly)
	{
		runs.Post("", middleware.ValidateRequest[startBulkRequest](), h.StartBulkRun)
		runs.Get("/current", h.CurrentBulkRun)
		runs.Get("/current/stream", h.StreamBulkRun)
		runs.Post("/current/cancel", h.CancelBulkRun)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
