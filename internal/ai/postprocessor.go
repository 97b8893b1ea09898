package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/utils"
)

var (
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptBlocks    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	dangerousTags   = regexp.MustCompile(`(?i)</?(script|iframe|object|embed|link|meta)[^>]*>`)
	maxFAQQuestions = 8
)

// PostProcessor validates and cleans provider drafts
type PostProcessor struct {
	maxTitleLength   int
	maxSummaryLength int
	minContentLength int
}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{
		maxTitleLength:   70,
		maxSummaryLength: 160,
		minContentLength: 200,
	}
}

// ProcessDraft validates, cleans and normalises a draft in place.
// fallbackTitle is used to derive a slug when the provider omitted one.
func (p *PostProcessor) ProcessDraft(d *models.ArticleDraft, fallbackTitle string) error {
	d.Title = p.cleanText(d.Title)
	d.Summary = p.cleanText(d.Summary)
	d.Content = p.cleanMarkdown(d.Content)

	if d.Title == "" {
		return fmt.Errorf("missing required field: title")
	}
	if len(d.Content) < p.minContentLength {
		return fmt.Errorf("content too short, minimum %d characters required", p.minContentLength)
	}

	d.Title = truncate(d.Title, p.maxTitleLength)
	d.Summary = truncate(d.Summary, p.maxSummaryLength)

	d.Slug = utils.Slugify(d.Slug)
	if d.Slug == "" {
		d.Slug = utils.Slugify(d.Title)
	}
	if d.Slug == "" {
		d.Slug = utils.Slugify(fallbackTitle)
	}

	faq := make(models.FAQ, 0, len(d.FAQ))
	for _, item := range d.FAQ {
		q, a := p.cleanText(item.Question), p.cleanText(item.Answer)
		if q == "" || a == "" {
			continue
		}
		faq = append(faq, models.FAQItem{Question: q, Answer: a})
		if len(faq) == maxFAQQuestions {
			break
		}
	}
	d.FAQ = faq

	return nil
}

// cleanText removes control characters and normalizes whitespace
func (p *PostProcessor) cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// cleanMarkdown strips unsafe HTML and normalizes line endings
func (p *PostProcessor) cleanMarkdown(content string) string {
	content = scriptBlocks.ReplaceAllString(content, "")
	content = dangerousTags.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.TrimSpace(content)
}

// truncate shortens s to max runes, ending with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
