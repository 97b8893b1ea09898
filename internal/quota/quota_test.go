package quota

import (
	"testing"
	"time"

	"github.com/bilgisen/autowriter/internal/models"
)

// 2026-03-04 is a Wednesday (weekday 3)
var wednesdayNine = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

func siteA() models.SchedulerConfig {
	return models.SchedulerConfig{
		SiteID:       "A",
		Enabled:      true,
		DaysOfWeek:   []int64{1, 3, 5},
		PublishHours: []int64{9},
		MaxPerDay:    2,
	}
}

func TestMayRunScenario(t *testing.T) {
	cfg := siteA()
	if !MayRun(cfg, wednesdayNine, 1) {
		t.Error("Expected eligible with todayCount=1")
	}
	if MayRun(cfg, wednesdayNine, 2) {
		t.Error("Expected ineligible with todayCount=2")
	}
}

// Every combination of the four conditions: only all-true is eligible.
func TestMayRunLattice(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		enabled := mask&1 != 0
		dayOK := mask&2 != 0
		hourOK := mask&4 != 0
		underCap := mask&8 != 0

		cfg := siteA()
		cfg.Enabled = enabled
		now := wednesdayNine
		if !dayOK {
			now = now.AddDate(0, 0, 1) // Thursday
		}
		if !hourOK {
			now = now.Add(2 * time.Hour)
		}
		count := 0
		if !underCap {
			count = cfg.MaxPerDay
		}

		want := enabled && dayOK && hourOK && underCap
		if got := MayRun(cfg, now, count); got != want {
			t.Errorf("mask %04b: MayRun = %v, want %v", mask, got, want)
		}
	}
}

func TestEvaluateReasons(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.SchedulerConfig)
		count  int
		want   Reason
	}{
		{"eligible", func(*models.SchedulerConfig) {}, 0, ReasonEligible},
		{"disabled", func(c *models.SchedulerConfig) { c.Enabled = false }, 0, ReasonDisabled},
		{"empty days", func(c *models.SchedulerConfig) { c.DaysOfWeek = nil }, 0, ReasonWrongDay},
		{"empty hours", func(c *models.SchedulerConfig) { c.PublishHours = nil }, 0, ReasonWrongHour},
		{"zero cap", func(c *models.SchedulerConfig) { c.MaxPerDay = 0 }, 0, ReasonDailyLimit},
		{"over cap", func(*models.SchedulerConfig) {}, 5, ReasonDailyLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := siteA()
			tt.mutate(&cfg)
			if got := Evaluate(cfg, wednesdayNine, tt.count); got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 3, 4, 1, 15, 0, 0, loc)
	got := StartOfDay(now)
	if !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, loc)) {
		t.Errorf("StartOfDay() = %v", got)
	}
}
