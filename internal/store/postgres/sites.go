package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bilgisen/autowriter/internal/models"
)

// SiteRepository manages the sites table
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository creates a new repository
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Get retrieves a site by ID
func (r *SiteRepository) Get(ctx context.Context, id string) (*models.Site, error) {
	var s models.Site
	if err := r.db.GetContext(ctx, &s, `SELECT id, name, domain, created_at FROM sites WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &s, nil
}

// List returns every site ordered by ID
func (r *SiteRepository) List(ctx context.Context) ([]models.Site, error) {
	sites := []models.Site{}
	if err := r.db.SelectContext(ctx, &sites, `SELECT id, name, domain, created_at FROM sites ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}
