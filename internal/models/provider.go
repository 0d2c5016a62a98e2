package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/sophos/internal/config"
)

// New builds the chat model selected by cfg.LLMProvider.
func New(ctx context.Context, cfg config.Config) (model.LLM, error) {
	apiKey := cfg.ProviderAPIKey()
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIModel(ctx, cfg.ChatModel, "", &genai.ClientConfig{APIKey: apiKey})
	case "xai", "grok":
		return NewOpenAIModel(ctx, cfg.ChatModel, xaiBaseURL, &genai.ClientConfig{APIKey: apiKey})
	case "openrouter":
		return NewOpenAIModel(ctx, cfg.ChatModel, openRouterBaseURL, &genai.ClientConfig{APIKey: apiKey})
	case "gemini":
		return NewGeminiModel(ctx, cfg.ChatModel, apiKey)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
