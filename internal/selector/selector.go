// Package selector picks and reserves the next keyword for a site.
package selector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// Selector reserves keywords with an optimistic pending -> generating update
type Selector struct {
	keywords store.Keywords
	now      func() time.Time
	log      zerolog.Logger
}

// New creates a selector over keywords
func New(keywords store.Keywords) *Selector {
	return &Selector{
		keywords: keywords,
		now:      time.Now,
		log:      logger.Component("selector"),
	}
}

// WithClock overrides the reservation timestamp source
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// ReserveNext selects the highest priority, oldest pending keyword matching
// f and marks it generating. A lost race against a concurrent caller is
// retried with a fresh selection and never surfaces. It returns
// models.ErrBacklogExhausted when nothing eligible is left.
func (s *Selector) ReserveNext(ctx context.Context, f store.KeywordFilter) (*models.Keyword, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		k, err := s.keywords.NextPending(ctx, f)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBacklogExhausted
		}
		if err != nil {
			return nil, &models.PersistenceError{Op: "select keyword", Err: err}
		}

		ok, err := s.keywords.Reserve(ctx, k.ID, s.now())
		if err != nil {
			return nil, &models.PersistenceError{Op: "reserve keyword", Err: err}
		}
		if ok {
			k.Status = models.KeywordGenerating
			return k, nil
		}

		s.log.Debug().
			Str("site_id", f.SiteID).
			Str("keyword_id", k.ID).
			Int("attempt", attempt).
			Msg("Keyword reserved by another caller, selecting again")
	}
}

// Reserve is ReserveNext over the whole site backlog
func (s *Selector) Reserve(ctx context.Context, siteID string) (*models.Keyword, error) {
	k, err := s.ReserveNext(ctx, store.KeywordFilter{SiteID: siteID})
	if err != nil && !errors.Is(err, models.ErrBacklogExhausted) {
		return nil, fmt.Errorf("reserve keyword for site %s: %w", siteID, err)
	}
	return k, err
}
