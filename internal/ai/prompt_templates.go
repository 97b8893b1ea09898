package ai

import (
	"fmt"
	"strings"

	"github.com/bilgisen/autowriter/internal/models"
)

// PromptTemplates contains the prompt templates used for content generation
var PromptTemplates = struct {
	Article string
	Improve string
}{
	Article: `You are an expert SEO writer for a content website.
Write a complete, original article about the keyword below with these requirements:

1. Title: Catchy, under 70 characters, contains the keyword
2. Slug: lowercase, words separated by hyphens
3. Content: Well-structured markdown with an introduction, H2/H3 sections and a conclusion
4. Summary: 1-2 sentences, under 160 characters
5. FAQ: 3 to 5 questions readers commonly ask, with concise answers

Format your response as a valid JSON object with these fields:
- title (string)
- slug (string)
- content (markdown formatted string)
- summary (string)
- faq (array of objects with "question" and "answer")

Keyword: %s`,

	Improve: `You are a senior editor. Improve the article below.
%s

Return the improved article as a valid JSON object with the same fields:
title, slug, content (markdown), summary, faq (array of {"question","answer"}).

Article JSON:
%s`,
}

var improveInstructions = map[models.ImprovementMode]string{
	models.ImprovementConservative: "Fix grammar, tighten wording and improve readability. Keep the structure, headings, facts and length.",
	models.ImprovementAggressive:   "Restructure freely: reorder sections, expand thin parts, add examples and sharpen the title. Keep every fact accurate.",
}

// BuildArticlePrompt creates the generation prompt for a keyword
func BuildArticlePrompt(keyword string) string {
	return fmt.Sprintf(PromptTemplates.Article, escapeForPrompt(keyword))
}

// BuildImprovePrompt creates the rewrite prompt for a draft serialized as JSON
func BuildImprovePrompt(mode models.ImprovementMode, draftJSON string) string {
	instructions, ok := improveInstructions[mode]
	if !ok {
		instructions = improveInstructions[models.ImprovementConservative]
	}
	return fmt.Sprintf(PromptTemplates.Improve, instructions, draftJSON)
}

// escapeForPrompt escapes special characters for use in prompts
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
