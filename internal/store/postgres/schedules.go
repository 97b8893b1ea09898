package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bilgisen/autowriter/internal/models"
)

const scheduleColumns = `site_id, enabled, days_of_week, publish_hours, max_per_day, max_per_week, auto_publish, updated_at`

// ScheduleRepository manages the scheduler_configs table
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new repository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) list(ctx context.Context, where string) ([]models.SchedulerConfig, error) {
	configs := []models.SchedulerConfig{}
	query := `SELECT ` + scheduleColumns + ` FROM scheduler_configs WHERE ` + where + ` ORDER BY site_id`
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list scheduler configs: %w", err)
	}
	return configs, nil
}

// ListEnabled returns every enabled config
func (r *ScheduleRepository) ListEnabled(ctx context.Context) ([]models.SchedulerConfig, error) {
	return r.list(ctx, "enabled = TRUE")
}

// ListAutoPublish returns every config with auto-publish on
func (r *ScheduleRepository) ListAutoPublish(ctx context.Context) ([]models.SchedulerConfig, error) {
	return r.list(ctx, "auto_publish = TRUE")
}

// Get returns one site's config
func (r *ScheduleRepository) Get(ctx context.Context, siteID string) (*models.SchedulerConfig, error) {
	var cfg models.SchedulerConfig
	query := `SELECT ` + scheduleColumns + ` FROM scheduler_configs WHERE site_id = $1`
	if err := r.db.GetContext(ctx, &cfg, query, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get scheduler config: %w", err)
	}
	return &cfg, nil
}

// Upsert creates or replaces a site's config
func (r *ScheduleRepository) Upsert(ctx context.Context, cfg *models.SchedulerConfig) error {
	query := `
		INSERT INTO scheduler_configs (` + scheduleColumns + `)
		VALUES (:site_id, :enabled, :days_of_week, :publish_hours, :max_per_day, :max_per_week, :auto_publish, NOW())
		ON CONFLICT (site_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			days_of_week = EXCLUDED.days_of_week,
			publish_hours = EXCLUDED.publish_hours,
			max_per_day = EXCLUDED.max_per_day,
			max_per_week = EXCLUDED.max_per_week,
			auto_publish = EXCLUDED.auto_publish,
			updated_at = NOW()`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert scheduler config: %w", err)
	}
	return nil
}
