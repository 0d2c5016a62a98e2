package memory

import (
	"context"
	"testing"
	"time"

	"github.com/easeaico/sophos/internal/types"
)

func TestComputeWeeklyPatternWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	start := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	state := types.NewUserMemoryState("u1")
	state.EmotionLog = []types.EmotionEntry{
		{Emotion: "triste", Timestamp: start.Add(-time.Second)},
		{Emotion: "feliz", Timestamp: start},
		{Emotion: "cansado", Timestamp: now.Add(-time.Hour)},
	}
	state.TopicLog["treino"] = []types.TopicEntry{
		{Text: "velho", Timestamp: start.Add(-time.Minute)},
		{Text: "novo", Timestamp: start.Add(time.Minute)},
	}

	pattern := ComputeWeeklyPattern(state, now, time.UTC)
	if !pattern.WindowStart.Equal(start) {
		t.Fatalf("unexpected window start %s", pattern.WindowStart)
	}
	if pattern.EmotionCounts["triste"] != 0 {
		t.Fatalf("entry before the window was counted")
	}
	if pattern.EmotionCounts["feliz"] != 1 || pattern.EmotionCounts["cansado"] != 1 {
		t.Fatalf("unexpected emotion counts %v", pattern.EmotionCounts)
	}
	if pattern.TopicCounts["treino"] != 1 {
		t.Fatalf("unexpected topic counts %v", pattern.TopicCounts)
	}
}

func TestComputeWeeklyPatternUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 15th is still the 14th in BRT
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)

	pattern := ComputeWeeklyPattern(types.NewUserMemoryState("u1"), now, loc)
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, loc)
	if !pattern.WindowStart.Equal(want) {
		t.Fatalf("expected %s, got %s", want, pattern.WindowStart)
	}
}

func TestComputeWeeklyPatternDominantTie(t *testing.T) {
	now := time.Now()
	state := types.NewUserMemoryState("u1")
	for _, e := range []string{"feliz", "triste", "triste", "feliz"} {
		state.EmotionLog = append(state.EmotionLog, types.EmotionEntry{Emotion: e, Timestamp: now})
	}

	if got := ComputeWeeklyPattern(state, now, time.UTC).DominantEmotion; got != "feliz" {
		t.Fatalf("expected first seen emotion to win the tie, got %q", got)
	}
	if got := ComputeWeeklyPattern(types.NewUserMemoryState("u2"), now, time.UTC).DominantEmotion; got != "" {
		t.Fatalf("expected no dominant emotion, got %q", got)
	}
}

func TestWeeklyAggregatorIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	base := NewRepo(store)
	for _, uid := range []string{"a", "b", "c"} {
		if err := base.EnsureUser(ctx, uid); err != nil {
			t.Fatalf("ensure user: %v", err)
		}
		if err := base.PushEmotion(ctx, uid, types.EmotionEntry{Emotion: "focado", Timestamp: time.Now()}); err != nil {
			t.Fatalf("push emotion: %v", err)
		}
	}

	repo := NewRepo(&failingStore{DocumentStore: store, failPrefix: "users/b"})
	report, err := NewWeeklyAggregator(repo, time.UTC, 2).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Users != 3 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	for _, uid := range []string{"a", "c"} {
		state, err := base.LoadState(ctx, uid)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if state.WeeklyPattern == nil || state.WeeklyPattern.DominantEmotion != "focado" {
			t.Fatalf("user %s: unexpected pattern %#v", uid, state.WeeklyPattern)
		}
	}
}
