package utils

import (
	"testing"

	"google.golang.org/genai"
)

func TestExtractContentTextSkipsThoughts(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{
		{Text: "pensando...", Thought: true},
		nil,
		{Text: "Olá, "},
		{Text: "tudo bem?"},
	}}
	if got := ExtractContentText(content); got != "Olá, tudo bem?" {
		t.Fatalf("unexpected text: %q", got)
	}
	if ExtractContentText(nil) != "" {
		t.Fatalf("expected empty text for nil content")
	}
}
