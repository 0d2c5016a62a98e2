package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"

	"github.com/easeaico/sophos/internal/utils"
)

// GenerateText runs a non-streaming request and returns the first complete text.
func GenerateText(ctx context.Context, llm model.LLM, req *model.LLMRequest) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("model not configured")
	}

	var text string
	var genErr error
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			genErr = err
			break
		}
		if resp == nil || resp.Partial {
			continue
		}
		text = strings.TrimSpace(utils.ExtractContentText(resp.Content))
		break
	}
	if genErr != nil {
		return "", fmt.Errorf("failed to generate content: %w", genErr)
	}
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}
