// Package pipelinetest provides scripted collaborators for pipeline tests.
package pipelinetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bilgisen/autowriter/internal/models"
)

// ErrProvider is returned by generators asked to fail
var ErrProvider = &models.ProviderError{Provider: "fake", Op: "generate", Err: errors.New("boom")}

// Generator writes a deterministic draft per keyword. Keywords listed in
// Fail return ErrProvider.
type Generator struct {
	mu    sync.Mutex
	Fail  map[string]bool
	Calls []string
	// Hook, when set, runs before each generation
	Hook func(keyword string)
}

func (g *Generator) Generate(_ context.Context, keyword string) (*models.ArticleDraft, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, keyword)
	hook := g.Hook
	fail := g.Fail[keyword]
	g.mu.Unlock()

	if hook != nil {
		hook(keyword)
	}
	if fail {
		return nil, ErrProvider
	}
	return &models.ArticleDraft{
		Title:   "Guide to " + keyword,
		Slug:    strings.ReplaceAll(strings.ToLower(keyword), " ", "-"),
		Content: "## " + keyword + "\n\nBody.",
		Summary: "About " + keyword,
		FAQ:     models.FAQ{{Question: "What is " + keyword + "?", Answer: "A topic."}},
	}, nil
}

// CallCount returns how many generations were attempted
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// Recorder collects activity entries
type Recorder struct {
	mu      sync.Mutex
	Entries []models.Activity
}

func (r *Recorder) Record(_ context.Context, a models.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, a)
}

// Types returns the recorded activity types in order
func (r *Recorder) Types() []models.ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ActivityType, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Type)
	}
	return out
}
