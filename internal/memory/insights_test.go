package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/sophos/internal/types"
)

func pushEmotions(t *testing.T, repo *Repo, userID string, names ...string) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range names {
		entry := types.EmotionEntry{Emotion: name, Timestamp: base.AddDate(0, 0, i)}
		if err := repo.PushEmotion(context.Background(), userID, entry); err != nil {
			t.Fatalf("push emotion: %v", err)
		}
	}
}

func TestEmotionSummary(t *testing.T) {
	m, _, _ := newTestManager(&fakeLLM{})
	pushEmotions(t, m.Repo(), "u1", "feliz", "triste", "feliz", "focado")

	got, err := m.EmotionSummary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := []EmotionCount{{"feliz", 2}, {"triste", 1}, {"focado", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected summary %v", got)
	}
}

func TestTopicHistory(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&fakeLLM{})
	for i := 0; i < 7; i++ {
		entry := types.TopicEntry{Text: fmt.Sprintf("treino %d", i), Timestamp: time.Now()}
		if err := m.Repo().PushTopic(ctx, "u1", "treino", entry); err != nil {
			t.Fatalf("push topic: %v", err)
		}
	}

	texts, err := m.TopicHistory(ctx, "u1", " Treino ")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"treino 2", "treino 3", "treino 4", "treino 5", "treino 6"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("unexpected history %v", texts)
	}

	if _, err := m.TopicHistory(ctx, "u1", "futebol"); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
}

func TestCounselNeedsHistory(t *testing.T) {
	llm := &fakeLLM{reply: "conselho"}
	m, _, _ := newTestManager(llm)
	pushEmotions(t, m.Repo(), "u1", "feliz", "triste")

	if _, err := m.Counsel(context.Background(), "u1"); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
	if len(llm.requests) != 0 {
		t.Fatalf("expected no model call")
	}
}

func TestCounselUsesRecentWindow(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{reply: "Durma mais."}
	m, _, _ := newTestManager(llm)
	pushEmotions(t, m.Repo(), "u1", "feliz", "triste", "cansado", "focado", "ansioso", "animado", "nervoso", "motivado")

	advice, err := m.Counsel(ctx, "u1")
	if err != nil || advice != "Durma mais." {
		t.Fatalf("unexpected counsel %q %v", advice, err)
	}

	sent := userText(llm.requests[0])
	if strings.Contains(sent, "2024-03-01: feliz") {
		t.Fatalf("oldest emotion outside the window was sent:\n%s", sent)
	}
	if !strings.Contains(sent, "2024-03-02: triste") || !strings.Contains(sent, "2024-03-08: motivado") {
		t.Fatalf("unexpected counsel prompt:\n%s", sent)
	}

	last, _ := m.Repo().LastResponse(ctx, "u1")
	if last == nil || last.Kind != KindCounsel || last.Text != advice {
		t.Fatalf("unexpected last response %#v", last)
	}
}

func TestSummarizeText(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{reply: "Três pontos."}
	m, _, _ := newTestManager(llm)

	if _, err := m.SummarizeText(ctx, "u1", "  "); err == nil {
		t.Fatalf("expected error for blank text")
	}

	summary, err := m.SummarizeText(ctx, "u1", "um texto longo")
	if err != nil || summary != "Três pontos." {
		t.Fatalf("unexpected summary %q %v", summary, err)
	}
	if !strings.HasSuffix(userText(llm.requests[0]), "um texto longo") {
		t.Fatalf("unexpected request %q", userText(llm.requests[0]))
	}
	last, _ := m.Repo().LastResponse(ctx, "u1")
	if last == nil || last.Kind != KindSummarize {
		t.Fatalf("unexpected last response %#v", last)
	}
}
