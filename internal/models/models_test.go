package models

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	responses []*model.LLMResponse
	err       error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		for _, r := range f.responses {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestGenerateTextSkipsPartial(t *testing.T) {
	llm := &fakeLLM{responses: []*model.LLMResponse{
		{Content: genai.NewContentFromText("par", "model"), Partial: true},
		{Content: genai.NewContentFromText(" completo ", "model")},
	}}
	text, err := GenerateText(context.Background(), llm, &model.LLMRequest{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "completo" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestGenerateTextErrors(t *testing.T) {
	if _, err := GenerateText(context.Background(), &fakeLLM{err: errors.New("quota")}, &model.LLMRequest{}); err == nil {
		t.Fatalf("expected error from model")
	}
	empty := &fakeLLM{responses: []*model.LLMResponse{{Content: genai.NewContentFromText("  ", "model")}}}
	if _, err := GenerateText(context.Background(), empty, &model.LLMRequest{}); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestBuildOpenAIParamsSystemParts(t *testing.T) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("oi", "user")},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{
				{Text: "persona"},
				{Text: ""},
				{Text: "estilo"},
			}},
		},
	}
	params := buildOpenAIParams(req, "gpt-4o")
	if params.Model != "gpt-4o" {
		t.Fatalf("unexpected model: %s", params.Model)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil || params.Messages[1].OfSystem == nil {
		t.Fatalf("expected system messages first")
	}
	if params.Messages[2].OfUser == nil {
		t.Fatalf("expected user message last")
	}
}

func TestBuildOpenAIParamsResponseSchema(t *testing.T) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("oi", "user")},
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseJsonSchema: &jsonschema.Schema{
				Type:                 "object",
				AdditionalProperties: &jsonschema.Schema{Type: "string"},
			},
		},
	}
	params := buildOpenAIParams(req, "gpt-4o")
	if params.ResponseFormat.OfJSONSchema == nil {
		t.Fatalf("expected json schema response format")
	}
	schema, ok := params.ResponseFormat.OfJSONSchema.JSONSchema.Schema.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Fatalf("unexpected schema: %#v", params.ResponseFormat.OfJSONSchema.JSONSchema.Schema)
	}
}

func TestBuildOpenAIParamsJSONObject(t *testing.T) {
	req := &model.LLMRequest{
		Config: &genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	}
	params := buildOpenAIParams(req, "gpt-4o")
	if params.ResponseFormat.OfJSONObject == nil {
		t.Fatalf("expected json object response format")
	}
}

func TestOpenAIModelGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Olá!"}}]}`)
	}))
	defer srv.Close()

	llm, err := NewOpenAIModel(context.Background(), "gpt-4o", srv.URL, &genai.ClientConfig{APIKey: "test"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	text, err := GenerateText(context.Background(), llm, &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("oi", "user")},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("persona", "system"),
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "Olá!" {
		t.Fatalf("unexpected text: %q", text)
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("expected system message first, got %v", first["role"])
	}
}

func TestNewOpenAIModelValidation(t *testing.T) {
	if _, err := NewOpenAIModel(context.Background(), "gpt-4o", "", &genai.ClientConfig{}); err == nil {
		t.Fatalf("expected error for missing API key")
	}
	if _, err := NewOpenAIModel(context.Background(), "", "", &genai.ClientConfig{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model name")
	}
}
