package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ArticleStatus is the lifecycle state of a generated article
type ArticleStatus string

const (
	ArticleStatusDraft       ArticleStatus = "draft"
	ArticleStatusReady       ArticleStatus = "ready"
	ArticleStatusPublished   ArticleStatus = "published"
	ArticleStatusUnpublished ArticleStatus = "unpublished"
)

// FAQItem is one question/answer pair attached to an article
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQ is stored as a JSONB column
type FAQ []FAQItem

// Value implements driver.Valuer
func (f FAQ) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner
func (f *FAQ) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*f = FAQ{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("faq: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, f)
}

// ArticleDraft is the structured output of the generation provider
type ArticleDraft struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
	Summary string `json:"summary"`
	FAQ     FAQ    `json:"faq"`
}

// Article is a piece of site content produced from a keyword.
// PublishedAt is non-nil exactly when Status is ArticleStatusPublished.
type Article struct {
	ID          string        `json:"id" db:"id"`
	SiteID      string        `json:"site_id" db:"site_id"`
	KeywordID   *string       `json:"keyword_id,omitempty" db:"keyword_id"`
	Title       string        `json:"title" db:"title"`
	Slug        string        `json:"slug" db:"slug"`
	Content     string        `json:"content" db:"content"`
	Summary     string        `json:"summary" db:"summary"`
	FAQ         FAQ           `json:"faq" db:"faq"`
	ImageURL    string        `json:"image_url,omitempty" db:"image_url"`
	ImageAlt    string        `json:"image_alt,omitempty" db:"image_alt"`
	Status      ArticleStatus `json:"status" db:"status"`
	PublishedAt *time.Time    `json:"published_at" db:"published_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// NewArticle builds an article from a draft. autoPublish decides the
// initial status and whether PublishedAt is stamped.
func NewArticle(id, siteID string, keywordID *string, draft ArticleDraft, autoPublish bool, now time.Time) *Article {
	a := &Article{
		ID:        id,
		SiteID:    siteID,
		KeywordID: keywordID,
		Title:     draft.Title,
		Slug:      draft.Slug,
		Content:   draft.Content,
		Summary:   draft.Summary,
		FAQ:       draft.FAQ,
		Status:    ArticleStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.FAQ == nil {
		a.FAQ = FAQ{}
	}
	if autoPublish {
		a.Publish(now)
	}
	return a
}

// Publish moves the article to published and stamps PublishedAt
func (a *Article) Publish(now time.Time) {
	t := now
	a.Status = ArticleStatusPublished
	a.PublishedAt = &t
	a.UpdatedAt = now
}

// Unpublish takes the article offline and clears PublishedAt
func (a *Article) Unpublish(now time.Time) {
	a.Status = ArticleStatusUnpublished
	a.PublishedAt = nil
	a.UpdatedAt = now
}

// KeywordStatusAfter returns the keyword status implied by this article's status
func (a *Article) KeywordStatusAfter() KeywordStatus {
	if a.Status == ArticleStatusPublished {
		return KeywordPublished
	}
	return KeywordGenerated
}

// Image is an illustration found or created for an article
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}
