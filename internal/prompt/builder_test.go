package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/easeaico/sophos/internal/types"
)

func TestBuildTurnOrder(t *testing.T) {
	got, err := BuildTurn(TurnContext{
		Context:     "Resumo anterior: falou de trabalho\nUsuário: oi",
		Facts:       map[string]string{"filho": "Lucas", "cidade": "Recife"},
		Profile:     "estoico racional",
		Retrieved:   []string{"cidade: Recife"},
		UserMessage: "tudo bem?",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := "Resumo anterior: falou de trabalho\nUsuário: oi" +
		"\n\nLembrar:\n- cidade: Recife\n- filho: Lucas" +
		"\n\nPerfil: estoico racional" +
		"\n\nMemórias relacionadas:\n- cidade: Recife" +
		"\n\nUsuário disse:\ntudo bem?"
	if got != want {
		t.Fatalf("unexpected prompt:\n%q\nwant:\n%q", got, want)
	}
}

func TestBuildTurnMinimal(t *testing.T) {
	got, err := BuildTurn(TurnContext{UserMessage: "oi"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Usuário disse:\noi" {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestTurnRequestSystemParts(t *testing.T) {
	req := TurnRequest("prompt", ConciseDirective)
	parts := req.Config.SystemInstruction.Parts
	if len(parts) != 2 || parts[0].Text != Persona || parts[1].Text != ConciseDirective {
		t.Fatalf("unexpected system parts: %#v", parts)
	}
	if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
		t.Fatalf("expected a single user content")
	}

	req = TurnRequest("prompt", "")
	if len(req.Config.SystemInstruction.Parts) != 1 {
		t.Fatalf("expected persona only without directive")
	}
}

func TestSummaryRequestCarriesOverflow(t *testing.T) {
	req := SummaryRequest([]string{"a", "b"})
	text := req.Contents[0].Parts[0].Text
	if !strings.HasPrefix(text, "Resuma brevemente o seguinte histórico de conversas:\n\n") || !strings.HasSuffix(text, "a\nb") {
		t.Fatalf("unexpected summary prompt: %q", text)
	}
}

func TestFactRequestSchema(t *testing.T) {
	req := FactRequest("meu filho é Lucas")
	if req.Config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json mime type")
	}
	schema, ok := req.Config.ResponseJsonSchema.(*jsonschema.Schema)
	if !ok || schema.AdditionalProperties == nil || schema.AdditionalProperties.Type != "string" {
		t.Fatalf("unexpected schema: %#v", req.Config.ResponseJsonSchema)
	}
}

func TestCounselRequest(t *testing.T) {
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	req, err := CounselRequest([]types.EmotionEntry{{Emotion: "cansado", Timestamp: day}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	text := req.Contents[0].Parts[0].Text
	if !strings.Contains(text, "- 2024-03-05: cansado") {
		t.Fatalf("unexpected counsel prompt: %q", text)
	}
}
