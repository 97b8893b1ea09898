package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SchedulerConfig controls autonomous generation for one site
type SchedulerConfig struct {
	SiteID       string        `json:"site_id" db:"site_id" validate:"required"`
	Enabled      bool          `json:"enabled" db:"enabled"`
	DaysOfWeek   pq.Int64Array `json:"days_of_week" db:"days_of_week" validate:"max=7,dive,min=0,max=6"`
	PublishHours pq.Int64Array `json:"publish_hours" db:"publish_hours" validate:"max=24,dive,min=0,max=23"`
	MaxPerDay    int           `json:"max_per_day" db:"max_per_day" validate:"min=0,max=1000"`
	MaxPerWeek   int           `json:"max_per_week" db:"max_per_week" validate:"min=0,max=7000"`
	AutoPublish  bool          `json:"auto_publish" db:"auto_publish"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// HasDay reports whether d is one of the configured days
func (c SchedulerConfig) HasDay(d time.Weekday) bool {
	for _, v := range c.DaysOfWeek {
		if v == int64(d) {
			return true
		}
	}
	return false
}

// HasHour reports whether h is one of the configured publish hours
func (c SchedulerConfig) HasHour(h int) bool {
	for _, v := range c.PublishHours {
		if v == int64(h) {
			return true
		}
	}
	return false
}

// Warnings returns advisory notes about the weekly cap. The weekly cap is
// not enforced by the autonomous pass, so an edit that allows more per week
// than max_per_week is accepted with a warning.
func (c SchedulerConfig) Warnings() []string {
	var warnings []string
	if len(c.DaysOfWeek) == 0 || len(c.PublishHours) == 0 {
		warnings = append(warnings, "no days or hours selected: the site will never be scheduled")
	}
	if c.MaxPerWeek > 0 {
		if weekly := c.MaxPerDay * len(uniqueInts(c.DaysOfWeek)); weekly > c.MaxPerWeek {
			warnings = append(warnings, fmt.Sprintf(
				"max_per_day allows up to %d articles per week, above max_per_week %d", weekly, c.MaxPerWeek))
		}
	}
	return warnings
}

func uniqueInts(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
