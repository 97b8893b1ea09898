package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/activity"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// PublishReport is the aggregate result of a publish pass
type PublishReport struct {
	Published int      `json:"published"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// PublishPass promotes ready articles of auto-publishing sites
type PublishPass struct {
	schedules store.Schedules
	articles  store.Articles
	keywords  store.Keywords
	activity  activity.Recorder
	log       zerolog.Logger
}

// NewPublishPass creates the pass; rec may be nil
func NewPublishPass(s *store.Store, rec activity.Recorder) *PublishPass {
	if rec == nil {
		rec = activity.Nop{}
	}
	return &PublishPass{
		schedules: s.Schedules,
		articles:  s.Articles,
		keywords:  s.Keywords,
		activity:  rec,
		log:       logger.Component("publish_pass"),
	}
}

// Run publishes every ready article. Each article is handled on its own: a
// failure is recorded in the report and the pass moves on. Articles already
// moved out of ready by someone else are skipped, so repeated runs publish
// nothing new.
func (p *PublishPass) Run(ctx context.Context, now time.Time) (*PublishReport, error) {
	configs, err := p.schedules.ListAutoPublish(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list scheduler configs", Err: err}
	}

	report := &PublishReport{}
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ready, err := p.articles.ListByStatus(ctx, cfg.SiteID, models.ArticleStatusReady)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("site %s: %v", cfg.SiteID, err))
			p.log.Error().Err(err).Str("site_id", cfg.SiteID).Msg("Failed to list ready articles")
			continue
		}

		report.Total += len(ready)
		for i := range ready {
			published, err := p.publish(ctx, &ready[i], now)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("article %s: %v", ready[i].ID, err))
				continue
			}
			if published {
				report.Published++
			}
		}
	}

	p.log.Info().
		Int("published", report.Published).
		Int("total", report.Total).
		Int("errors", len(report.Errors)).
		Msg("Publish pass finished")
	return report, nil
}

func (p *PublishPass) publish(ctx context.Context, a *models.Article, now time.Time) (bool, error) {
	log := p.log.With().Str("site_id", a.SiteID).Str("article_id", a.ID).Logger()

	ok, err := p.articles.Transition(ctx, a.ID, models.ArticleStatusReady, models.ArticleStatusPublished, now)
	if err != nil {
		log.Error().Err(err).Msg("Failed to publish article")
		return false, err
	}
	if !ok {
		log.Debug().Msg("Article no longer ready, skipping")
		return false, nil
	}

	if a.KeywordID != nil {
		if err := p.keywords.SetStatus(ctx, *a.KeywordID, models.KeywordPublished); err != nil {
			// the article is live; the keyword lagging behind is reported but not undone
			log.Warn().Err(err).Str("keyword_id", *a.KeywordID).Msg("Failed to mark keyword published")
		}
	}

	p.activity.Record(ctx, models.Activity{
		SiteID:    a.SiteID,
		Type:      models.ActivityArticlePublished,
		Message:   fmt.Sprintf("Published %q", a.Title),
		Metadata:  map[string]any{"article_id": a.ID},
		CreatedAt: now,
	})
	log.Info().Msg("Article published")
	return true, nil
}
