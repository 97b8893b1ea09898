// Package trigger runs the time-triggered passes in-process on cron specs,
// as an alternative to an external scheduler calling the cron endpoints.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
)

// Job is one pass invocation
type Job func(ctx context.Context, now time.Time) error

// Runner owns a cron instance and the jobs registered on it
type Runner struct {
	cron    *cron.Cron
	parser  cron.Parser
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
	mu      sync.Mutex
	now     func() time.Time
	log     zerolog.Logger
}

// New creates a runner evaluating specs in loc
func New(loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	log := logger.Component("trigger")
	cl := cronLogger{log: log}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		parser:  parser,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
		now:     time.Now,
		log:     log,
	}
}

// Add registers job under name on spec. An empty spec leaves it unscheduled.
func (r *Runner) Add(name, spec string, job Job) error {
	if spec == "" {
		r.log.Info().Str("job", name).Msg("No schedule, job disabled")
		return nil
	}
	schedule, err := r.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("failed to parse cron expression for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[name]; ok {
		r.cron.Remove(id)
	}
	r.entries[name] = r.cron.Schedule(schedule, cron.FuncJob(func() { r.run(name, job) }))

	r.log.Info().
		Str("job", name).
		Str("schedule", spec).
		Time("next_run", schedule.Next(r.now())).
		Msg("Job scheduled")
	return nil
}

func (r *Runner) run(name string, job Job) {
	start := r.now()
	if err := job(r.ctx, start); err != nil {
		r.log.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("Scheduled job failed")
		return
	}
	r.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("Scheduled job finished")
}

// Entries returns the registered job names with their next run time
func (r *Runner) Entries() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Time, len(r.entries))
	for name, id := range r.entries {
		out[name] = r.cron.Entry(id).Next
	}
	return out
}

func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info().Int("jobs", len(r.entries)).Msg("Trigger started")
}

// Stop cancels running jobs' context and waits for them until ctx is done
func (r *Runner) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()
	r.cancel()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("trigger stop: %w", ctx.Err())
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
