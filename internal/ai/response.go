package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bilgisen/autowriter/internal/models"
)

// parseDraft decodes a model response into a draft. Models sometimes wrap
// JSON in a markdown code fence.
func parseDraft(response string) (*models.ArticleDraft, error) {
	clean := strings.TrimSpace(response)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(clean, "```")
		clean = strings.TrimSpace(clean)
	}

	var draft models.ArticleDraft
	if err := json.Unmarshal([]byte(clean), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &draft, nil
}
