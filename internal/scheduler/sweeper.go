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

// SweepReport lists keywords returned to pending
type SweepReport struct {
	Reset    int      `json:"reset"`
	Keywords []string `json:"keywords,omitempty"`
}

// Sweeper frees keywords whose generating reservation outlived the lease
type Sweeper struct {
	keywords store.Keywords
	activity activity.Recorder
	after    time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a sweeper resetting reservations older than after
func NewSweeper(keywords store.Keywords, rec activity.Recorder, after time.Duration) *Sweeper {
	if rec == nil {
		rec = activity.Nop{}
	}
	return &Sweeper{
		keywords: keywords,
		activity: rec,
		after:    after,
		log:      logger.Component("sweeper"),
	}
}

// Sweep resets stale reservations as of now
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	cutoff := now.Add(-s.after)
	reset, err := s.keywords.ResetStale(ctx, cutoff)
	if err != nil {
		return nil, &models.PersistenceError{Op: "reset stale keywords", Err: err}
	}

	report := &SweepReport{Reset: len(reset)}
	for _, k := range reset {
		report.Keywords = append(report.Keywords, k.ID)
		s.activity.Record(ctx, models.Activity{
			SiteID:    k.SiteID,
			Type:      models.ActivityKeywordReset,
			Message:   fmt.Sprintf("Keyword %q returned to pending after a stale reservation", k.Text),
			Metadata:  map[string]any{"keyword_id": k.ID},
			CreatedAt: now,
		})
	}

	if len(reset) > 0 {
		s.log.Warn().Int("reset", len(reset)).Time("cutoff", cutoff).Msg("Reset stale keyword reservations")
	}
	return report, nil
}
