// Package store defines the persistence boundary used by the scheduling core.
package store

import (
	"context"
	"time"

	"github.com/bilgisen/autowriter/internal/models"
)

// KeywordFilter narrows pending-keyword queries. An empty IDs slice means
// the whole site backlog.
type KeywordFilter struct {
	SiteID string
	IDs    []string
}

// Keywords is the keyword table
type Keywords interface {
	// NextPending returns the highest priority, oldest pending keyword
	// matching f, or models.ErrNotFound.
	NextPending(ctx context.Context, f KeywordFilter) (*models.Keyword, error)
	// Reserve flips id from pending to generating. It returns false when
	// no row was affected because the keyword is no longer pending.
	Reserve(ctx context.Context, id string, now time.Time) (bool, error)
	// SetStatus writes status unconditionally and clears the reservation.
	SetStatus(ctx context.Context, id string, status models.KeywordStatus) error
	// SetStatuses is the manual bulk edit; it returns the number of rows
	// changed. Keywords held in generating are left to their holder.
	SetStatuses(ctx context.Context, ids []string, status models.KeywordStatus) (int64, error)
	CountPending(ctx context.Context, f KeywordFilter) (int, error)
	// ResetStale returns generating keywords reserved before cutoff to pending.
	ResetStale(ctx context.Context, cutoff time.Time) ([]models.Keyword, error)
	// Insert adds keywords, skipping texts whose hash already exists for the site.
	Insert(ctx context.Context, keywords []models.Keyword) (int, error)
	ExistingHashes(ctx context.Context, siteID string, hashes []string) (map[string]bool, error)
}

// Articles is the article table
type Articles interface {
	// CreateWithKeyword persists a and moves its keyword to keywordStatus as
	// one unit when the backend supports transactions.
	CreateWithKeyword(ctx context.Context, a *models.Article, keywordStatus models.KeywordStatus) error
	SlugExists(ctx context.Context, siteID, slug string) (bool, error)
	CountCreatedSince(ctx context.Context, siteID string, since time.Time) (int, error)
	ListByStatus(ctx context.Context, siteID string, status models.ArticleStatus) ([]models.Article, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	// Transition moves id from one status to another and stamps or clears
	// published_at. It returns false when the article was not in from.
	Transition(ctx context.Context, id string, from, to models.ArticleStatus, now time.Time) (bool, error)
}

// Schedules is the per-site scheduler configuration table
type Schedules interface {
	ListEnabled(ctx context.Context) ([]models.SchedulerConfig, error)
	ListAutoPublish(ctx context.Context) ([]models.SchedulerConfig, error)
	Get(ctx context.Context, siteID string) (*models.SchedulerConfig, error)
	Upsert(ctx context.Context, cfg *models.SchedulerConfig) error
}

// Sites is the site table
type Sites interface {
	Get(ctx context.Context, id string) (*models.Site, error)
	List(ctx context.Context) ([]models.Site, error)
}

// Store bundles every table
type Store struct {
	Keywords  Keywords
	Articles  Articles
	Schedules Schedules
	Sites     Sites
	closer    func() error
}

// New bundles the tables; closer may be nil.
func New(k Keywords, a Articles, s Schedules, sites Sites, closer func() error) *Store {
	return &Store{Keywords: k, Articles: a, Schedules: s, Sites: sites, closer: closer}
}

// Close releases the backing connection
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
