// Package scheduler holds the time-triggered passes: autonomous generation,
// ready-article publishing and the stale reservation sweep.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/pipeline"
	"github.com/bilgisen/autowriter/internal/quota"
	"github.com/bilgisen/autowriter/internal/store"
)

// StepRunner reserves and generates one keyword
type StepRunner interface {
	RunOneStep(ctx context.Context, siteID string, keywordIDs []string, opts models.GenerationOptions) pipeline.StepResult
}

// Outcome is what a pass did with one site
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeQuota     Outcome = "quota_reached"
	OutcomeExhausted Outcome = "backlog_exhausted"
	OutcomeFailed    Outcome = "failed"
)

// SiteReport describes one site of a generate pass
type SiteReport struct {
	SiteID    string  `json:"site_id"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
	Generated int     `json:"generated"`
	Error     string  `json:"error,omitempty"`
}

// GenerateReport is the aggregate result of a generate pass
type GenerateReport struct {
	Generated     int          `json:"generated"`
	ActiveConfigs int          `json:"active_configs"`
	Sites         []SiteReport `json:"sites"`
}

// GeneratePass runs the autonomous generation tick over every enabled site
type GeneratePass struct {
	schedules store.Schedules
	articles  store.Articles
	steps     StepRunner
	location  *time.Location
	log       zerolog.Logger
}

// NewGeneratePass creates the pass. Day, hour and "today" are evaluated in loc.
func NewGeneratePass(s *store.Store, steps StepRunner, loc *time.Location) *GeneratePass {
	if loc == nil {
		loc = time.UTC
	}
	return &GeneratePass{
		schedules: s.Schedules,
		articles:  s.Articles,
		steps:     steps,
		location:  loc,
		log:       logger.Component("generate_pass"),
	}
}

// Run evaluates every enabled configuration once, sequentially. A failing
// site is reported and does not stop the pass.
func (g *GeneratePass) Run(ctx context.Context, now time.Time) (*GenerateReport, error) {
	configs, err := g.schedules.ListEnabled(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list scheduler configs", Err: err}
	}

	local := now.In(g.location)
	report := &GenerateReport{ActiveConfigs: len(configs), Sites: make([]SiteReport, 0, len(configs))}
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		site := g.runSite(ctx, cfg, local)
		report.Generated += site.Generated
		report.Sites = append(report.Sites, site)
	}

	g.log.Info().
		Int("generated", report.Generated).
		Int("active_configs", report.ActiveConfigs).
		Msg("Generate pass finished")
	return report, nil
}

func (g *GeneratePass) runSite(ctx context.Context, cfg models.SchedulerConfig, now time.Time) SiteReport {
	report := SiteReport{SiteID: cfg.SiteID}
	log := g.log.With().Str("site_id", cfg.SiteID).Logger()

	today, err := g.articles.CountCreatedSince(ctx, cfg.SiteID, quota.StartOfDay(now))
	if err != nil {
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		log.Error().Err(err).Msg("Failed to count today's articles")
		return report
	}

	if reason := quota.Evaluate(cfg, now, today); reason != quota.ReasonEligible {
		report.Outcome = OutcomeSkipped
		report.Reason = string(reason)
		log.Debug().Str("reason", report.Reason).Int("today", today).Msg("Site not eligible")
		return report
	}

	opts := models.GenerationOptions{AutoPublish: cfg.AutoPublish}
	for quota.MayRun(cfg, now, today) {
		step := g.steps.RunOneStep(ctx, cfg.SiteID, nil, opts)
		if errors.Is(step.Error, models.ErrBacklogExhausted) {
			report.Outcome = OutcomeExhausted
			log.Info().Int("generated", report.Generated).Msg("No pending keywords left")
			return report
		}
		if !step.Success {
			report.Outcome = OutcomeFailed
			if step.Error != nil {
				report.Error = step.Error.Error()
			}
			log.Warn().Err(step.Error).Int("generated", report.Generated).Msg("Generation failed, site deferred to next tick")
			return report
		}
		report.Generated++
		today++
	}

	report.Outcome = OutcomeQuota
	report.Reason = string(quota.ReasonDailyLimit)
	log.Info().Int("generated", report.Generated).Int("today", today).Msg("Daily quota reached")
	return report
}
