package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Finalizer runs once after every bulk run, cancelled or not
type Finalizer interface {
	Finalize(ctx context.Context, final Snapshot) error
}

// NopFinalizer does nothing
type NopFinalizer struct{}

func (NopFinalizer) Finalize(context.Context, Snapshot) error { return nil }

// WebhookFinalizer notifies an external endpoint, typically a site
// revalidation hook, with the run summary
type WebhookFinalizer struct {
	client *resty.Client
	url    string
}

type finalizePayload struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Cancelled bool     `json:"cancelled"`
	Errors    int      `json:"errors"`
	Sites     []string `json:"sites"`
	Articles  []string `json:"articles"`
}

// NewFinalizer returns a WebhookFinalizer for url, or a NopFinalizer when url is empty
func NewFinalizer(url string, timeout time.Duration) Finalizer {
	if url == "" {
		return NopFinalizer{}
	}
	return &WebhookFinalizer{
		client: resty.New().SetTimeout(timeout).SetRetryCount(2),
		url:    url,
	}
}

func (w *WebhookFinalizer) Finalize(ctx context.Context, final Snapshot) error {
	payload := finalizePayload{
		Total:     final.Total,
		Completed: final.Completed,
		Cancelled: final.Cancelled,
		Errors:    len(final.Errors),
		Sites:     []string{},
		Articles:  make([]string, 0, len(final.Results)),
	}
	seen := make(map[string]bool)
	for _, r := range final.Results {
		payload.Articles = append(payload.Articles, r.ArticleID)
		if !seen[r.SiteID] {
			seen[r.SiteID] = true
			payload.Sites = append(payload.Sites, r.SiteID)
		}
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("finalize webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("finalize webhook: unexpected status code %d", resp.StatusCode())
	}
	return nil
}
