package models

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const responseSchemaName = "response"

// buildOpenAIParams converts ADK request to OpenAI parameters
func buildOpenAIParams(req *model.LLMRequest, model string) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.Model == "" {
		params.Model = model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Config != nil {
		messages = append(messages, convertSystemInstruction(req.Config.SystemInstruction)...)
	}
	messages = append(messages, convertContentsToMessages(req.Contents)...)
	if len(messages) > 0 {
		params.Messages = messages
	}

	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.Config.MaxOutputTokens))
		}
		if req.Config.TopP != nil {
			params.TopP = openai.Float(float64(*req.Config.TopP))
		}
		if format, ok := convertResponseFormat(req.Config); ok {
			params.ResponseFormat = format
		}
	}

	return &params
}

// convertSystemInstruction emits one system message per non-empty part.
func convertSystemInstruction(instruction *genai.Content) []openai.ChatCompletionMessageParamUnion {
	if instruction == nil {
		return nil
	}
	var messages []openai.ChatCompletionMessageParamUnion
	for _, part := range instruction.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		messages = append(messages, openai.SystemMessage(part.Text))
	}
	return messages
}

// convertResponseFormat maps the genai structured-output settings to an OpenAI response format.
func convertResponseFormat(cfg *genai.GenerateContentConfig) (openai.ChatCompletionNewParamsResponseFormatUnion, bool) {
	if cfg.ResponseJsonSchema != nil {
		if schema := convertSchemaToMap(cfg.ResponseJsonSchema); schema != nil {
			return openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   responseSchemaName,
						Schema: schema,
						// strict mode forbids open-ended additionalProperties
						Strict: openai.Bool(false),
					},
				},
			}, true
		}
	}
	if cfg.ResponseMIMEType == "application/json" {
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}, true
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{}, false
}

// convertSchemaToMap converts a JSON schema value to its plain map form.
func convertSchemaToMap(schema any) map[string]any {
	switch s := schema.(type) {
	case map[string]any:
		return s
	case *jsonschema.Schema:
		raw, err := json.Marshal(s)
		if err != nil {
			slog.Error("failed to marshal response schema", "error", err.Error())
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			slog.Error("failed to decode response schema", "error", err.Error())
			return nil
		}
		return out
	default:
		slog.Warn("unsupported response schema type")
		return nil
	}
}

// convertContentsToMessages converts genai.Content to OpenAI messages
func convertContentsToMessages(contents []*genai.Content) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	for _, content := range contents {
		if content == nil {
			continue
		}

		var sb strings.Builder
		for _, part := range content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		textContent := sb.String()

		switch content.Role {
		case "user":
			messages = append(messages, openai.UserMessage(textContent))
		case "model":
			messages = append(messages, openai.AssistantMessage(textContent))
		case "system":
			messages = append(messages, openai.SystemMessage(textContent))
		default:
			messages = append(messages, openai.UserMessage(textContent))
		}
	}

	return messages
}
