package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"

	"github.com/bilgisen/autowriter/internal/importer"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/middleware"
	"github.com/bilgisen/autowriter/internal/models"
)

// ListSites handles GET /api/sites
func (h *Handlers) ListSites(c *fiber.Ctx) error {
	sites, err := h.store.Sites.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"total": len(sites),
		"items": sites,
	})
}

// GetScheduler handles GET /api/sites/:id/scheduler
func (h *Handlers) GetScheduler(c *fiber.Ctx) error {
	cfg, err := h.store.Schedules.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"config":   cfg,
		"warnings": cfg.Warnings(),
	})
}

type schedulerRequest struct {
	Enabled      bool    `json:"enabled"`
	DaysOfWeek   []int64 `json:"days_of_week" validate:"max=7,dive,min=0,max=6"`
	PublishHours []int64 `json:"publish_hours" validate:"max=24,dive,min=0,max=23"`
	MaxPerDay    int     `json:"max_per_day" validate:"min=0,max=1000"`
	MaxPerWeek   int     `json:"max_per_week" validate:"min=0,max=7000"`
	AutoPublish  bool    `json:"auto_publish"`
}

// PutScheduler handles PUT /api/sites/:id/scheduler. The weekly cap is not
// enforced; inconsistent settings come back as warnings.
func (h *Handlers) PutScheduler(c *fiber.Ctx) error {
	siteID := c.Params("id")
	req := middleware.Validated[schedulerRequest](c)

	if _, err := h.store.Sites.Get(c.UserContext(), siteID); err != nil {
		return err
	}

	cfg := &models.SchedulerConfig{
		SiteID:       siteID,
		Enabled:      req.Enabled,
		DaysOfWeek:   pq.Int64Array(dedupe(req.DaysOfWeek)),
		PublishHours: pq.Int64Array(dedupe(req.PublishHours)),
		MaxPerDay:    req.MaxPerDay,
		MaxPerWeek:   req.MaxPerWeek,
		AutoPublish:  req.AutoPublish,
	}
	if err := h.store.Schedules.Upsert(c.UserContext(), cfg); err != nil {
		return err
	}

	warnings := cfg.Warnings()
	logger.Get().Info().
		Str("site_id", siteID).
		Bool("enabled", cfg.Enabled).
		Int("warnings", len(warnings)).
		Msg("Scheduler config saved")
	return c.JSON(fiber.Map{
		"config":   cfg,
		"warnings": warnings,
	})
}

func (h *Handlers) maxActivity() int {
	if h.config != nil && h.config.ActivityMaxEntries > 0 {
		return h.config.ActivityMaxEntries
	}
	return defaultActivityLimit
}

func dedupe(values []int64) []int64 {
	seen := make(map[int64]bool, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

type importRequest struct {
	Keywords   []importer.Input `json:"keywords" validate:"max=5000,dive"`
	SourceURLs []string         `json:"source_urls" validate:"max=20,dive,url"`
}

// ImportKeywords handles POST /api/sites/:id/keywords/import
func (h *Handlers) ImportKeywords(c *fiber.Ctx) error {
	siteID := c.Params("id")
	req := middleware.Validated[importRequest](c)
	if len(req.Keywords) == 0 && len(req.SourceURLs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "keywords or source_urls is required")
	}

	report, err := h.importer.Import(c.UserContext(), siteID, req.Keywords)
	if err != nil {
		return err
	}
	if len(req.SourceURLs) > 0 {
		fetched, err := h.importer.ImportFromURLs(c.UserContext(), siteID, req.SourceURLs)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		report.Received += fetched.Received
		report.Inserted += fetched.Inserted
		report.Duplicates += fetched.Duplicates
		report.Invalid = append(report.Invalid, fetched.Invalid...)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

type keywordStatusRequest struct {
	IDs    []string             `json:"ids" validate:"required,min=1,max=1000"`
	Status models.KeywordStatus `json:"status" validate:"required,oneof=pending generated published archived"`
}

// SetKeywordStatus handles PATCH /api/keywords/status. Reservations are
// owned by the pipeline, so generating can neither be set nor overwritten
// by hand; such ids and unknown ones are reported as skipped.
func (h *Handlers) SetKeywordStatus(c *fiber.Ctx) error {
	req := middleware.Validated[keywordStatusRequest](c)

	updated, err := h.store.Keywords.SetStatuses(c.UserContext(), req.IDs, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"updated": updated,
		"skipped": int64(len(req.IDs)) - updated,
		"status":  req.Status,
	})
}

// MarkArticleReady handles POST /api/articles/:id/ready
func (h *Handlers) MarkArticleReady(c *fiber.Ctx) error {
	return h.transition(c, models.ArticleStatusDraft, models.ArticleStatusReady)
}

// UnpublishArticle handles POST /api/articles/:id/unpublish
func (h *Handlers) UnpublishArticle(c *fiber.Ctx) error {
	return h.transition(c, models.ArticleStatusPublished, models.ArticleStatusUnpublished)
}

func (h *Handlers) transition(c *fiber.Ctx, from, to models.ArticleStatus) error {
	ctx := c.UserContext()
	id := c.Params("id")

	ok, err := h.store.Articles.Transition(ctx, id, from, to, h.now())
	if err != nil {
		return err
	}
	if !ok {
		current, err := h.store.Articles.Get(ctx, id)
		if err != nil {
			return err
		}
		return fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("%v: article is %s, expected %s", models.ErrInvalidTransition, current.Status, from))
	}

	article, err := h.store.Articles.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// SiteActivity handles GET /api/sites/:id/activity. limit is capped at the
// number of entries the log keeps per site.
func (h *Handlers) SiteActivity(c *fiber.Ctx) error {
	if h.activity == nil {
		return fiber.NewError(fiber.StatusNotFound, "activity log is not stored")
	}
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
	}
	limit = min(limit, h.maxActivity())

	items, err := h.activity.Recent(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return fmt.Errorf("read activity: %w", err)
	}
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}
