package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewArticlePublishedAtInvariant(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	draft := ArticleDraft{Title: "Title", Slug: "title", Content: "body"}

	published := NewArticle("a1", "site", nil, draft, true, now)
	if published.Status != ArticleStatusPublished {
		t.Errorf("Expected status published, got %s", published.Status)
	}
	if published.PublishedAt == nil || !published.PublishedAt.Equal(now) {
		t.Errorf("Expected published_at %v, got %v", now, published.PublishedAt)
	}

	draftArticle := NewArticle("a2", "site", nil, draft, false, now)
	if draftArticle.Status != ArticleStatusDraft {
		t.Errorf("Expected status draft, got %s", draftArticle.Status)
	}
	if draftArticle.PublishedAt != nil {
		t.Errorf("Expected nil published_at, got %v", draftArticle.PublishedAt)
	}

	published.Unpublish(now.Add(time.Hour))
	if published.Status != ArticleStatusUnpublished || published.PublishedAt != nil {
		t.Errorf("Unpublish left status=%s published_at=%v", published.Status, published.PublishedAt)
	}
}

func TestArticleJSONFields(t *testing.T) {
	a := NewArticle("a1", "site", nil, ArticleDraft{Title: "T", Slug: "t"}, false, time.Now())
	a.ImageURL = "https://example.com/image.jpg"

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Failed to marshal Article: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if result["image_url"] != "https://example.com/image.jpg" {
		t.Errorf("Expected image_url field, got %v", result["image_url"])
	}
	if v, ok := result["published_at"]; !ok || v != nil {
		t.Errorf("Expected explicit null published_at, got %v (present=%v)", v, ok)
	}
	if faq, ok := result["faq"].([]interface{}); !ok || len(faq) != 0 {
		t.Errorf("Expected empty faq array, got %v", result["faq"])
	}
}

func TestFAQScan(t *testing.T) {
	var f FAQ
	if err := f.Scan([]byte(`[{"question":"q","answer":"a"}]`)); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(f) != 1 || f[0].Question != "q" {
		t.Errorf("unexpected faq %+v", f)
	}
	if err := f.Scan(42); err == nil {
		t.Error("Expected error scanning int")
	}
}

func TestNewGenerationOptions(t *testing.T) {
	tests := []struct {
		name    string
		in      GenerationOptions
		want    GenerationOptions
		wantErr bool
	}{
		{
			name: "plain",
			in:   GenerationOptions{AutoPublish: true, ImagesPerArticle: 1},
			want: GenerationOptions{AutoPublish: true, ImagesPerArticle: 1},
		},
		{
			name: "improvement defaults",
			in:   GenerationOptions{EnableImprovement: true},
			want: GenerationOptions{EnableImprovement: true, ImprovementModel: ImproveWithGemini, ImprovementMode: ImprovementConservative},
		},
		{
			name:    "mode without improvement",
			in:      GenerationOptions{ImprovementMode: ImprovementAggressive},
			wantErr: true,
		},
		{
			name:    "unknown model",
			in:      GenerationOptions{EnableImprovement: true, ImprovementModel: "gpt"},
			wantErr: true,
		},
		{
			name:    "too many images",
			in:      GenerationOptions{ImagesPerArticle: MaxImagesPerArticle + 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGenerationOptions(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOptions) {
					t.Fatalf("Expected ErrInvalidOptions, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSchedulerConfigWarnings(t *testing.T) {
	cfg := SchedulerConfig{DaysOfWeek: []int64{1, 3, 5}, PublishHours: []int64{9}, MaxPerDay: 3, MaxPerWeek: 5}
	if w := cfg.Warnings(); len(w) != 1 {
		t.Errorf("Expected one weekly warning, got %v", w)
	}

	cfg.MaxPerWeek = 9
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("Expected no warnings, got %v", w)
	}

	empty := SchedulerConfig{MaxPerDay: 1}
	if w := empty.Warnings(); len(w) != 1 {
		t.Errorf("Expected never-scheduled warning, got %v", w)
	}
}
