package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/autowriter/internal/models"
)

const (
	geminiProvider       = "gemini"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient generates and rewrites articles with the Gemini API
type GeminiClient struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
	post    *PostProcessor
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewGeminiClient creates a client with transient-failure retries
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &GeminiClient{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		post:    NewPostProcessor(),
	}
}

// Generate writes a new article draft for keyword
func (g *GeminiClient) Generate(ctx context.Context, keyword string) (*models.ArticleDraft, error) {
	draft, err := g.complete(ctx, BuildArticlePrompt(keyword))
	if err != nil {
		return nil, &models.ProviderError{Provider: geminiProvider, Op: "generate", Err: err}
	}
	if err := g.post.ProcessDraft(draft, keyword); err != nil {
		return nil, &models.ProviderError{Provider: geminiProvider, Op: "generate", Err: err}
	}
	return draft, nil
}

// Improve rewrites draft according to mode
func (g *GeminiClient) Improve(ctx context.Context, draft models.ArticleDraft, mode models.ImprovementMode) (*models.ArticleDraft, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	improved, err := g.complete(ctx, BuildImprovePrompt(mode, string(payload)))
	if err != nil {
		return nil, &models.ProviderError{Provider: geminiProvider, Op: "improve", Err: err}
	}
	if err := g.post.ProcessDraft(improved, draft.Title); err != nil {
		return nil, &models.ProviderError{Provider: geminiProvider, Op: "improve", Err: err}
	}
	return improved, nil
}

func (g *GeminiClient) complete(ctx context.Context, prompt string) (*models.ArticleDraft, error) {
	text, err := g.callGeminiAPI(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseDraft(text)
}

func (g *GeminiClient) callGeminiAPI(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{
				Text: prompt,
			}},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	var resp geminiResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(url)

	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if httpResp.IsError() {
		return "", fmt.Errorf("unexpected status code %d", httpResp.StatusCode())
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}
