// Package memory is an in-process implementation of the store tables, used
// for local development (DATABASE_DRIVER=memory) and as the test fake.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// Failure injection points
const (
	OpReserve       = "reserve"
	OpSetStatus     = "set_status"
	OpCreateArticle = "create_article"
	OpTransition    = "transition"
)

// DB holds every table behind one mutex
type DB struct {
	mu        sync.RWMutex
	keywords  map[string]*models.Keyword
	articles  map[string]*models.Article
	schedules map[string]*models.SchedulerConfig
	sites     map[string]*models.Site
	failures  map[string]error
}

// New returns an empty database
func New() *DB {
	return &DB{
		keywords:  make(map[string]*models.Keyword),
		articles:  make(map[string]*models.Article),
		schedules: make(map[string]*models.SchedulerConfig),
		sites:     make(map[string]*models.Site),
		failures:  make(map[string]error),
	}
}

// Store exposes the tables through the store interfaces
func (db *DB) Store() *store.Store {
	return store.New(keywordTable{db}, articleTable{db}, scheduleTable{db}, siteTable{db}, nil)
}

// FailOn makes every subsequent call of op return err until cleared with a nil err
func (db *DB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

func (db *DB) failure(op string) error {
	return db.failures[op]
}

// AddSite seeds a site
func (db *DB) AddSite(s models.Site) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sites[s.ID] = &s
}

// AddKeyword seeds a keyword
func (db *DB) AddKeyword(k models.Keyword) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.keywords[k.ID] = &k
}

// AddSchedule seeds a scheduler config
func (db *DB) AddSchedule(c models.SchedulerConfig) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.schedules[c.SiteID] = &c
}

// AddArticle seeds an article
func (db *DB) AddArticle(a models.Article) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.articles[a.ID] = &a
}

// Keyword returns a copy of the keyword with id
func (db *DB) Keyword(id string) (models.Keyword, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	k, ok := db.keywords[id]
	if !ok {
		return models.Keyword{}, false
	}
	return *k, true
}

// SiteArticles returns copies of a site's articles ordered by creation
func (db *DB) SiteArticles(siteID string) []models.Article {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []models.Article
	for _, a := range db.articles {
		if a.SiteID == siteID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type keywordTable struct{ db *DB }

func matches(k *models.Keyword, f store.KeywordFilter) bool {
	if k.SiteID != f.SiteID || k.Status != models.KeywordPending {
		return false
	}
	if len(f.IDs) == 0 {
		return true
	}
	for _, id := range f.IDs {
		if id == k.ID {
			return true
		}
	}
	return false
}

func (t keywordTable) NextPending(ctx context.Context, f store.KeywordFilter) (*models.Keyword, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()

	var best *models.Keyword
	for _, k := range t.db.keywords {
		if !matches(k, f) {
			continue
		}
		if best == nil || before(k, best) {
			best = k
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	out := *best
	return &out, nil
}

// before orders by priority desc, created_at asc, id asc
func before(a, b *models.Keyword) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (t keywordTable) Reserve(ctx context.Context, id string, now time.Time) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err := t.db.failure(OpReserve); err != nil {
		return false, err
	}
	k, ok := t.db.keywords[id]
	if !ok || k.Status != models.KeywordPending {
		return false, nil
	}
	at := now
	k.Status = models.KeywordGenerating
	k.ReservedAt = &at
	k.UpdatedAt = now
	return true, nil
}

func (t keywordTable) SetStatus(ctx context.Context, id string, status models.KeywordStatus) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err := t.db.failure(OpSetStatus); err != nil {
		return err
	}
	k, ok := t.db.keywords[id]
	if !ok {
		return models.ErrNotFound
	}
	k.Status = status
	k.ReservedAt = nil
	k.UpdatedAt = time.Now()
	return nil
}

func (t keywordTable) SetStatuses(ctx context.Context, ids []string, status models.KeywordStatus) (int64, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if k, ok := t.db.keywords[id]; ok && k.Status != models.KeywordGenerating {
			k.Status = status
			k.ReservedAt = nil
			k.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (t keywordTable) CountPending(ctx context.Context, f store.KeywordFilter) (int, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	n := 0
	for _, k := range t.db.keywords {
		if matches(k, f) {
			n++
		}
	}
	return n, nil
}

func (t keywordTable) ResetStale(ctx context.Context, cutoff time.Time) ([]models.Keyword, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	var reset []models.Keyword
	for _, k := range t.db.keywords {
		if k.Status == models.KeywordGenerating && k.ReservedAt != nil && k.ReservedAt.Before(cutoff) {
			k.Status = models.KeywordPending
			k.ReservedAt = nil
			reset = append(reset, *k)
		}
	}
	sort.Slice(reset, func(i, j int) bool { return reset[i].ID < reset[j].ID })
	return reset, nil
}

func (t keywordTable) Insert(ctx context.Context, keywords []models.Keyword) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	inserted := 0
	for _, k := range keywords {
		if t.hashExists(k.SiteID, k.TextHash) {
			continue
		}
		k := k
		t.db.keywords[k.ID] = &k
		inserted++
	}
	return inserted, nil
}

func (t keywordTable) hashExists(siteID, hash string) bool {
	for _, k := range t.db.keywords {
		if k.SiteID == siteID && k.TextHash == hash {
			return true
		}
	}
	return false
}

func (t keywordTable) ExistingHashes(ctx context.Context, siteID string, hashes []string) (map[string]bool, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	out := make(map[string]bool)
	for _, h := range hashes {
		if t.hashExists(siteID, h) {
			out[h] = true
		}
	}
	return out, nil
}

type articleTable struct{ db *DB }

func (t articleTable) CreateWithKeyword(ctx context.Context, a *models.Article, keywordStatus models.KeywordStatus) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err := t.db.failure(OpCreateArticle); err != nil {
		return err
	}
	for _, existing := range t.db.articles {
		if existing.SiteID == a.SiteID && existing.Slug == a.Slug {
			return models.ErrSlugTaken
		}
	}
	cp := *a
	t.db.articles[a.ID] = &cp
	if a.KeywordID != nil {
		if k, ok := t.db.keywords[*a.KeywordID]; ok {
			k.Status = keywordStatus
			k.ReservedAt = nil
			k.UpdatedAt = a.CreatedAt
		}
	}
	return nil
}

func (t articleTable) SlugExists(ctx context.Context, siteID, slug string) (bool, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	for _, a := range t.db.articles {
		if a.SiteID == siteID && a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (t articleTable) CountCreatedSince(ctx context.Context, siteID string, since time.Time) (int, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	n := 0
	for _, a := range t.db.articles {
		if a.SiteID == siteID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (t articleTable) ListByStatus(ctx context.Context, siteID string, status models.ArticleStatus) ([]models.Article, error) {
	var out []models.Article
	for _, a := range t.db.SiteArticles(siteID) {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t articleTable) Get(ctx context.Context, id string) (*models.Article, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	a, ok := t.db.articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (t articleTable) Transition(ctx context.Context, id string, from, to models.ArticleStatus, now time.Time) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err := t.db.failure(OpTransition); err != nil {
		return false, err
	}
	a, ok := t.db.articles[id]
	if !ok || a.Status != from {
		return false, nil
	}
	switch to {
	case models.ArticleStatusPublished:
		a.Publish(now)
	case models.ArticleStatusUnpublished:
		a.Unpublish(now)
	default:
		a.Status = to
		a.PublishedAt = nil
		a.UpdatedAt = now
	}
	return true, nil
}

type scheduleTable struct{ db *DB }

func (t scheduleTable) list(keep func(*models.SchedulerConfig) bool) []models.SchedulerConfig {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	var out []models.SchedulerConfig
	for _, c := range t.db.schedules {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out
}

func (t scheduleTable) ListEnabled(ctx context.Context) ([]models.SchedulerConfig, error) {
	return t.list(func(c *models.SchedulerConfig) bool { return c.Enabled }), nil
}

func (t scheduleTable) ListAutoPublish(ctx context.Context) ([]models.SchedulerConfig, error) {
	return t.list(func(c *models.SchedulerConfig) bool { return c.AutoPublish }), nil
}

func (t scheduleTable) Get(ctx context.Context, siteID string) (*models.SchedulerConfig, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	c, ok := t.db.schedules[siteID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (t scheduleTable) Upsert(ctx context.Context, cfg *models.SchedulerConfig) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	cp := *cfg
	cp.UpdatedAt = time.Now()
	t.db.schedules[cfg.SiteID] = &cp
	return nil
}

type siteTable struct{ db *DB }

func (t siteTable) Get(ctx context.Context, id string) (*models.Site, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	s, ok := t.db.sites[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (t siteTable) List(ctx context.Context) ([]models.Site, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	out := make([]models.Site, 0, len(t.db.sites))
	for _, s := range t.db.sites {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
