package models

import "time"

// ActivityType classifies an activity log entry
type ActivityType string

const (
	ActivityArticleGenerated ActivityType = "article_generated"
	ActivityGenerationFailed ActivityType = "generation_failed"
	ActivityArticlePublished ActivityType = "article_published"
	ActivityKeywordStuck     ActivityType = "keyword_stuck"
	ActivityKeywordReset     ActivityType = "keyword_reset"
	ActivityBulkRunFinished  ActivityType = "bulk_run_finished"
)

// Activity is one fire-and-forget entry in a site's activity log
type Activity struct {
	SiteID    string         `json:"site_id"`
	Type      ActivityType   `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
