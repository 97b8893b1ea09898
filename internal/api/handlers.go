// Package api exposes the scheduling engine over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/autowriter/internal/bulk"
	"github.com/bilgisen/autowriter/internal/config"
	"github.com/bilgisen/autowriter/internal/importer"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/scheduler"
	"github.com/bilgisen/autowriter/internal/store"
)

const (
	version = "1.0.0"

	defaultActivityLimit = 500
)

// ActivityReader lists recent activity of a site
type ActivityReader interface {
	Recent(ctx context.Context, siteID string, limit int) ([]models.Activity, error)
}

// Deps wires the handlers. Activity may be nil.
type Deps struct {
	Config   *config.Config
	Store    *store.Store
	Generate *scheduler.GeneratePass
	Publish  *scheduler.PublishPass
	Sweeper  *scheduler.Sweeper
	Bulk     *bulk.Manager
	Importer *importer.Importer
	Activity ActivityReader
	Now      func() time.Time
}

type Handlers struct {
	config   *config.Config
	store    *store.Store
	generate *scheduler.GeneratePass
	publish  *scheduler.PublishPass
	sweeper  *scheduler.Sweeper
	bulk     *bulk.Manager
	importer *importer.Importer
	activity ActivityReader
	now      func() time.Time
}

func NewHandlers(d Deps) *Handlers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		config:   d.Config,
		store:    d.Store,
		generate: d.Generate,
		publish:  d.Publish,
		sweeper:  d.Sweeper,
		bulk:     d.Bulk,
		importer: d.Importer,
		activity: d.Activity,
		now:      now,
	}
}

// HealthCheck handles GET /api/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version,
		"time":    h.now().Format(time.RFC3339),
	})
}
