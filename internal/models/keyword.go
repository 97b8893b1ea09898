package models

import "time"

// KeywordStatus is the lifecycle state of a backlog keyword
type KeywordStatus string

const (
	KeywordPending    KeywordStatus = "pending"
	KeywordGenerating KeywordStatus = "generating"
	KeywordGenerated  KeywordStatus = "generated"
	KeywordPublished  KeywordStatus = "published"
	KeywordArchived   KeywordStatus = "archived"
)

// Valid reports whether s is a known keyword status
func (s KeywordStatus) Valid() bool {
	switch s {
	case KeywordPending, KeywordGenerating, KeywordGenerated, KeywordPublished, KeywordArchived:
		return true
	}
	return false
}

// Keyword is one topic in a site's backlog, turned into at most one article
type Keyword struct {
	ID         string        `json:"id" db:"id"`
	SiteID     string        `json:"site_id" db:"site_id"`
	Text       string        `json:"text" db:"text"`
	TextHash   string        `json:"-" db:"text_hash"`
	Status     KeywordStatus `json:"status" db:"status"`
	Priority   int           `json:"priority" db:"priority"`
	ReservedAt *time.Time    `json:"reserved_at,omitempty" db:"reserved_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}
