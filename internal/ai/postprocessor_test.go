package ai

import (
	"strings"
	"testing"

	"github.com/bilgisen/autowriter/internal/models"
)

func TestProcessDraftCleansContent(t *testing.T) {
	p := NewPostProcessor()
	d := &models.ArticleDraft{
		Title:   "  A\x01 very   long title " + strings.Repeat("x", 100),
		Content: "<script>alert(1)</script>" + longContent + "<iframe src=x>",
		Summary: strings.Repeat("s", 300),
	}

	if err := p.ProcessDraft(d, "fallback"); err != nil {
		t.Fatalf("ProcessDraft() error = %v", err)
	}
	if strings.Contains(d.Content, "<script") || strings.Contains(d.Content, "<iframe") {
		t.Errorf("Expected unsafe tags stripped, got %q", d.Content[:40])
	}
	if n := len([]rune(d.Title)); n > 70 {
		t.Errorf("Expected title truncated to 70, got %d", n)
	}
	if n := len([]rune(d.Summary)); n > 160 {
		t.Errorf("Expected summary truncated to 160, got %d", n)
	}
	if !strings.HasPrefix(d.Title, "A very long title") {
		t.Errorf("Expected normalized title, got %q", d.Title)
	}
	if d.Slug == "" {
		t.Error("Expected slug")
	}
}

func TestProcessDraftRejectsEmpty(t *testing.T) {
	p := NewPostProcessor()
	if err := p.ProcessDraft(&models.ArticleDraft{Content: longContent}, "kw"); err == nil {
		t.Error("Expected missing title error")
	}
	if err := p.ProcessDraft(&models.ArticleDraft{Title: "T", Content: "tiny"}, "kw"); err == nil {
		t.Error("Expected short content error")
	}
}

func TestBuildImprovePromptModes(t *testing.T) {
	conservative := BuildImprovePrompt(models.ImprovementConservative, "{}")
	aggressive := BuildImprovePrompt(models.ImprovementAggressive, "{}")
	if conservative == aggressive {
		t.Error("Expected mode-specific prompts")
	}
	if !strings.Contains(BuildArticlePrompt(`say "hi"`), `say \"hi\"`) {
		t.Error("Expected quotes escaped in article prompt")
	}
}
