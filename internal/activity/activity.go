// Package activity records per-site audit entries for generation and
// publishing events. Recording never fails the caller.
package activity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
)

// Recorder accepts activity entries
type Recorder interface {
	Record(ctx context.Context, a models.Activity)
}

// Nop discards everything
type Nop struct{}

func (Nop) Record(context.Context, models.Activity) {}

// LogRecorder writes activity entries to the structured log
type LogRecorder struct {
	log zerolog.Logger
	now func() time.Time
}

// NewLogRecorder creates a recorder backed by the global logger
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: logger.Component("activity"), now: time.Now}
}

func (l *LogRecorder) Record(_ context.Context, a models.Activity) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = l.now()
	}
	evt := l.log.Info().
		Str("site_id", a.SiteID).
		Str("type", string(a.Type)).
		Time("at", a.CreatedAt)
	if len(a.Metadata) > 0 {
		evt = evt.Fields(a.Metadata)
	}
	evt.Msg(a.Message)
}
