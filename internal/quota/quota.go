// Package quota decides whether a site may start a new article at a given time.
package quota

import (
	"time"

	"github.com/bilgisen/autowriter/internal/models"
)

// Reason explains a negative decision
type Reason string

const (
	ReasonEligible   Reason = ""
	ReasonDisabled   Reason = "disabled"
	ReasonWrongDay   Reason = "day not scheduled"
	ReasonWrongHour  Reason = "hour not scheduled"
	ReasonDailyLimit Reason = "daily limit reached"
)

// Evaluate returns ReasonEligible when cfg allows a new article at now
// given todayCount articles already produced. Checks run in a fixed order
// so the reported reason is stable. now must already be in the site's
// scheduling time zone.
func Evaluate(cfg models.SchedulerConfig, now time.Time, todayCount int) Reason {
	switch {
	case !cfg.Enabled:
		return ReasonDisabled
	case !cfg.HasDay(now.Weekday()):
		return ReasonWrongDay
	case !cfg.HasHour(now.Hour()):
		return ReasonWrongHour
	case todayCount >= cfg.MaxPerDay:
		return ReasonDailyLimit
	}
	return ReasonEligible
}

// MayRun reports whether all four conditions hold: enabled, day, hour and
// the daily cap. Empty day or hour sets make a site permanently ineligible.
func MayRun(cfg models.SchedulerConfig, now time.Time, todayCount int) bool {
	return Evaluate(cfg, now, todayCount) == ReasonEligible
}

// StartOfDay returns midnight of now's calendar day in now's location
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
