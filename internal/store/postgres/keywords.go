package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

const keywordColumns = `id, site_id, text, text_hash, status, priority, reserved_at, created_at, updated_at`

// KeywordRepository manages the keywords table
type KeywordRepository struct {
	db *sqlx.DB
}

// NewKeywordRepository creates a new repository
func NewKeywordRepository(db *sqlx.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

func pendingWhere(f store.KeywordFilter) (string, []any) {
	where := `WHERE site_id = $1 AND status = 'pending'`
	args := []any{f.SiteID}
	if len(f.IDs) > 0 {
		where += ` AND id = ANY($2)`
		args = append(args, pq.Array(f.IDs))
	}
	return where, args
}

// NextPending returns the next keyword in selection order without reserving it
func (r *KeywordRepository) NextPending(ctx context.Context, f store.KeywordFilter) (*models.Keyword, error) {
	where, args := pendingWhere(f)
	query := `SELECT ` + keywordColumns + ` FROM keywords ` + where + `
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT 1`

	var k models.Keyword
	if err := r.db.GetContext(ctx, &k, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("next pending keyword: %w", err)
	}
	return &k, nil
}

// Reserve is the conditional pending -> generating update. Zero affected
// rows means another caller won the keyword.
func (r *KeywordRepository) Reserve(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE keywords
		SET status = 'generating', reserved_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("reserve keyword: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get affected rows: %w", err)
	}
	return rows == 1, nil
}

// SetStatus writes status and clears any reservation
func (r *KeywordRepository) SetStatus(ctx context.Context, id string, status models.KeywordStatus) error {
	query := `
		UPDATE keywords
		SET status = $2, reserved_at = NULL, updated_at = NOW()
		WHERE id = $1`
	if err := execExpectOneRow(ctx, r.db, query, id, status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("set keyword status: %w", err)
	}
	return nil
}

// SetStatuses updates many keywords at once, skipping reserved ones
func (r *KeywordRepository) SetStatuses(ctx context.Context, ids []string, status models.KeywordStatus) (int64, error) {
	query := `
		UPDATE keywords
		SET status = $2, reserved_at = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status <> 'generating'`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids), status)
	if err != nil {
		return 0, fmt.Errorf("set keyword statuses: %w", err)
	}
	return result.RowsAffected()
}

// CountPending counts the pending backlog matching f
func (r *KeywordRepository) CountPending(ctx context.Context, f store.KeywordFilter) (int, error) {
	where, args := pendingWhere(f)
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM keywords `+where, args...); err != nil {
		return 0, fmt.Errorf("count pending keywords: %w", err)
	}
	return count, nil
}

// ResetStale returns keywords whose reservation is older than cutoff to pending.
// This recovers keywords left in generating by a crashed process.
func (r *KeywordRepository) ResetStale(ctx context.Context, cutoff time.Time) ([]models.Keyword, error) {
	query := `
		UPDATE keywords
		SET status = 'pending', reserved_at = NULL, updated_at = NOW()
		WHERE status = 'generating' AND reserved_at < $1
		RETURNING ` + keywordColumns

	keywords := []models.Keyword{}
	if err := r.db.SelectContext(ctx, &keywords, query, cutoff); err != nil {
		return nil, fmt.Errorf("reset stale keywords: %w", err)
	}
	return keywords, nil
}

// Insert adds keywords in one transaction, skipping duplicates by text hash
func (r *KeywordRepository) Insert(ctx context.Context, keywords []models.Keyword) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert keywords: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO keywords (id, site_id, text, text_hash, status, priority, created_at, updated_at)
		VALUES (:id, :site_id, :text, :text_hash, :status, :priority, :created_at, :updated_at)
		ON CONFLICT (site_id, text_hash) DO NOTHING`

	inserted := 0
	for i := range keywords {
		result, execErr := tx.NamedExecContext(ctx, query, &keywords[i])
		if execErr != nil {
			return 0, fmt.Errorf("insert keyword %q: %w", keywords[i].Text, execErr)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert keywords: %w", err)
	}
	return inserted, nil
}

// ExistingHashes reports which of hashes already exist for the site
func (r *KeywordRepository) ExistingHashes(ctx context.Context, siteID string, hashes []string) (map[string]bool, error) {
	var found []string
	query := `SELECT text_hash FROM keywords WHERE site_id = $1 AND text_hash = ANY($2)`
	if err := r.db.SelectContext(ctx, &found, query, siteID, pq.Array(hashes)); err != nil {
		return nil, fmt.Errorf("existing keyword hashes: %w", err)
	}
	out := make(map[string]bool, len(found))
	for _, h := range found {
		out[h] = true
	}
	return out, nil
}
