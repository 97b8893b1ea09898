package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ImprovementProvider names the backend used for the rewrite pass
type ImprovementProvider string

const (
	ImproveWithGemini ImprovementProvider = "gemini"
	ImproveWithClaude ImprovementProvider = "claude"
)

// ImprovementMode controls how far the rewrite pass may drift from the draft
type ImprovementMode string

const (
	ImprovementConservative ImprovementMode = "conservative"
	ImprovementAggressive   ImprovementMode = "aggressive"
)

// MaxImagesPerArticle bounds ImagesPerArticle
const MaxImagesPerArticle = 4

var optionsValidator = validator.New()

// GenerationOptions is the per-call configuration of one generation step.
// Build it with NewGenerationOptions so that invalid combinations are
// rejected up front; the value is passed by copy and never mutated.
type GenerationOptions struct {
	AutoPublish       bool                `json:"auto_publish"`
	EnableImprovement bool                `json:"enable_improvement"`
	ImprovementModel  ImprovementProvider `json:"improvement_model,omitempty" validate:"omitempty,oneof=gemini claude"`
	ImprovementMode   ImprovementMode     `json:"improvement_mode,omitempty" validate:"omitempty,oneof=conservative aggressive"`
	ImagesPerArticle  int                 `json:"images_per_article" validate:"min=0,max=4"`
}

// NewGenerationOptions validates o and returns it. When improvement is
// enabled the model defaults to gemini and the mode to conservative.
func NewGenerationOptions(o GenerationOptions) (GenerationOptions, error) {
	if err := optionsValidator.Struct(o); err != nil {
		return GenerationOptions{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if !o.EnableImprovement {
		if o.ImprovementModel != "" || o.ImprovementMode != "" {
			return GenerationOptions{}, fmt.Errorf("%w: improvement model/mode set while improvement is disabled", ErrInvalidOptions)
		}
		return o, nil
	}
	if o.ImprovementModel == "" {
		o.ImprovementModel = ImproveWithGemini
	}
	if o.ImprovementMode == "" {
		o.ImprovementMode = ImprovementConservative
	}
	return o, nil
}

// WantsImage reports whether the illustration step should run
func (o GenerationOptions) WantsImage() bool {
	return o.ImagesPerArticle > 0
}

// BulkTask is one site's share of a bulk run, expanded into Count steps
type BulkTask struct {
	SiteID     string            `json:"site_id"`
	SiteName   string            `json:"site_name"`
	Count      int               `json:"count"`
	KeywordIDs []string          `json:"keyword_ids,omitempty"`
	Options    GenerationOptions `json:"options"`
}
