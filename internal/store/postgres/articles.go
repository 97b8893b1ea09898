package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bilgisen/autowriter/internal/models"
)

const articleColumns = `id, site_id, keyword_id, title, slug, content, summary, faq,
			image_url, image_alt, status, published_at, created_at, updated_at`

// ArticleRepository manages the articles table
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new repository
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// CreateWithKeyword inserts a and advances its keyword in one transaction
func (r *ArticleRepository) CreateWithKeyword(ctx context.Context, a *models.Article, keywordStatus models.KeywordStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create article: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	insert := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES (:id, :site_id, :keyword_id, :title, :slug, :content, :summary, :faq,
			:image_url, :image_alt, :status, :published_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, a); err != nil {
		if isUniqueViolation(err) {
			return models.ErrSlugTaken
		}
		return fmt.Errorf("insert article: %w", err)
	}

	if a.KeywordID != nil {
		update := `
			UPDATE keywords
			SET status = $2, reserved_at = NULL, updated_at = $3
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, *a.KeywordID, keywordStatus, a.CreatedAt); err != nil {
			return fmt.Errorf("advance keyword: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create article: %w", err)
	}
	return nil
}

// SlugExists reports whether slug is taken on the site
func (r *ArticleRepository) SlugExists(ctx context.Context, siteID, slug string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM articles WHERE site_id = $1 AND slug = $2)`
	if err := r.db.GetContext(ctx, &exists, query, siteID, slug); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// CountCreatedSince counts a site's articles created at or after since
func (r *ArticleRepository) CountCreatedSince(ctx context.Context, siteID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM articles WHERE site_id = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, siteID, since); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// ListByStatus returns a site's articles in status, oldest first
func (r *ArticleRepository) ListByStatus(ctx context.Context, siteID string, status models.ArticleStatus) ([]models.Article, error) {
	articles := []models.Article{}
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE site_id = $1 AND status = $2
		ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &articles, query, siteID, status); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// Get retrieves a single article by ID
func (r *ArticleRepository) Get(ctx context.Context, id string) (*models.Article, error) {
	var a models.Article
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// Transition moves an article between statuses only if it is still in from.
// published_at is stamped when entering published and cleared otherwise.
func (r *ArticleRepository) Transition(ctx context.Context, id string, from, to models.ArticleStatus, now time.Time) (bool, error) {
	var publishedAt *time.Time
	if to == models.ArticleStatusPublished {
		publishedAt = &now
	}
	query := `
		UPDATE articles
		SET status = $3, published_at = $4, updated_at = $5
		WHERE id = $1 AND status = $2`

	err := execExpectOneRow(ctx, r.db, query, id, from, to, publishedAt, now)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("transition article: %w", err)
	}
	return true, nil
}
