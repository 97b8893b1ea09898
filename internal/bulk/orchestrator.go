package bulk

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/pipeline"
)

const defaultStepTimeout = 5 * time.Minute

// StepRunner reserves and generates one keyword
type StepRunner interface {
	RunOneStep(ctx context.Context, siteID string, keywordIDs []string, opts models.GenerationOptions) pipeline.StepResult
}

// Orchestrator executes a Plan step by step
type Orchestrator struct {
	steps       StepRunner
	finalizer   Finalizer
	stepTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewOrchestrator creates an orchestrator. finalizer may be nil.
func NewOrchestrator(steps StepRunner, finalizer Finalizer, stepTimeout time.Duration) *Orchestrator {
	if finalizer == nil {
		finalizer = NopFinalizer{}
	}
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	return &Orchestrator{
		steps:       steps,
		finalizer:   finalizer,
		stepTimeout: stepTimeout,
		now:         time.Now,
		log:         logger.Component("bulk"),
	}
}

// Run executes plan sequentially: tasks in order, and Count steps within
// each task. tok is checked before and after every step. A step already
// running when tok is cancelled finishes and its result is kept. A task is
// abandoned once its site runs out of keywords; any other step failure is
// recorded and the run continues. The finalizer runs once at the end and
// IsRunning is cleared last.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan, tok *Token, progress *Progress) Snapshot {
	started := o.now()
	progress.update(func(s *Snapshot) {
		*s = Snapshot{
			IsRunning: true,
			Total:     plan.Total,
			Errors:    append([]string{}, plan.Errors...),
			Results:   []StepView{},
			StartedAt: started,
		}
	})
	o.log.Info().Int("tasks", len(plan.Tasks)).Int("total", plan.Total).Msg("Bulk run started")

	cancelled := o.execute(ctx, plan, tok, progress)

	final := progress.Snapshot()
	final.IsRunning = false
	final.CurrentSite = ""
	final.Cancelled = cancelled
	if err := o.finalizer.Finalize(context.WithoutCancel(ctx), final); err != nil {
		o.log.Warn().Err(err).Msg("Bulk finalizer failed")
	}

	finished := o.now()
	progress.finish(func(s *Snapshot) {
		s.IsRunning = false
		s.CurrentSite = ""
		s.Cancelled = cancelled
		s.FinishedAt = &finished
	})

	snap := progress.Snapshot()
	o.log.Info().
		Int("completed", snap.Completed).
		Int("total", snap.Total).
		Int("errors", len(snap.Errors)).
		Bool("cancelled", cancelled).
		Dur("took", finished.Sub(started)).
		Msg("Bulk run finished")
	return snap
}

// execute returns true when the run stopped on a cancellation checkpoint
func (o *Orchestrator) execute(ctx context.Context, plan *Plan, tok *Token, progress *Progress) bool {
	for _, task := range plan.Tasks {
		log := o.log.With().Str("site_id", task.SiteID).Logger()

		for i := 0; i < task.Count; i++ {
			if o.stop(ctx, tok, progress) {
				return true
			}

			progress.update(func(s *Snapshot) { s.CurrentSite = task.SiteName })
			step := o.runStep(ctx, task)

			if errors.Is(step.Error, models.ErrBacklogExhausted) {
				progress.update(func(s *Snapshot) {
					s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", task.SiteName, step.Error))
				})
				log.Info().Int("step", i+1).Int("count", task.Count).Msg("Backlog exhausted, abandoning task")
				break
			}

			progress.update(func(s *Snapshot) {
				s.Completed++
				if step.Success {
					s.Results = append(s.Results, StepView{
						SiteID:    task.SiteID,
						SiteName:  task.SiteName,
						ArticleID: step.ArticleID,
						Title:     step.Title,
						Keyword:   step.Keyword,
					})
					return
				}
				s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", task.SiteName, errorText(step)))
			})

			if o.stop(ctx, tok, progress) {
				return true
			}
		}
	}
	return false
}

// runStep bounds one step by the step timeout. The step context is detached
// from ctx so stopping the server does not abort a generation in flight.
// A panicking step is recorded as a failed step.
func (o *Orchestrator) runStep(ctx context.Context, task models.BulkTask) (res pipeline.StepResult) {
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Str("site_id", task.SiteID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Bulk step panicked")
			res = pipeline.StepResult{Error: fmt.Errorf("step panicked: %v", r)}
		}
	}()
	return o.steps.RunOneStep(stepCtx, task.SiteID, task.KeywordIDs, task.Options)
}

// stop appends exactly one notice when the run must not start more work
func (o *Orchestrator) stop(ctx context.Context, tok *Token, progress *Progress) bool {
	var reason error
	switch {
	case tok.Cancelled():
		reason = models.ErrCancelled
	case ctx.Err() != nil:
		reason = ctx.Err()
	default:
		return false
	}
	progress.update(func(s *Snapshot) { s.Errors = append(s.Errors, reason.Error()) })
	o.log.Info().Err(reason).Msg("Bulk run stopping")
	return true
}

func errorText(step pipeline.StepResult) string {
	if step.Error == nil {
		return "generation failed"
	}
	return step.Error.Error()
}
