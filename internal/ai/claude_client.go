package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bilgisen/autowriter/internal/models"
)

const claudeProvider = "claude"

// ClaudeConfig configures the Claude rewrite client
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
}

// ClaudeImprover rewrites drafts with the Anthropic Messages API
type ClaudeImprover struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	post      *PostProcessor
}

// NewClaudeImprover creates the rewrite client
func NewClaudeImprover(cfg ClaudeConfig) *ClaudeImprover {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &ClaudeImprover{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		post:      NewPostProcessor(),
	}
}

// Improve rewrites draft according to mode
func (c *ClaudeImprover) Improve(ctx context.Context, draft models.ArticleDraft, mode models.ImprovementMode) (*models.ArticleDraft, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildImprovePrompt(mode, string(payload)))),
		},
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: claudeProvider, Op: "improve", Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &models.ProviderError{Provider: claudeProvider, Op: "improve", Err: errors.New("no text in response")}
	}

	improved, err := parseDraft(text.String())
	if err != nil {
		return nil, &models.ProviderError{Provider: claudeProvider, Op: "improve", Err: err}
	}
	if err := c.post.ProcessDraft(improved, draft.Title); err != nil {
		return nil, &models.ProviderError{Provider: claudeProvider, Op: "improve", Err: err}
	}
	return improved, nil
}
