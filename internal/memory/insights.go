package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/sophos/internal/emotion"
	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/models"
	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
)

const (
	counselMinEntries = 3
	counselWindow     = 7
	topicHistorySize  = 5
)

var (
	// ErrNotEnoughData is returned when there is too little history for a request.
	ErrNotEnoughData = errors.New("not enough data")
	// ErrUnknownTopic is returned for topics outside the vocabulary.
	ErrUnknownTopic = errors.New("unknown topic")
)

// EmotionCount is one row of an emotion summary.
type EmotionCount struct {
	Emotion string
	Count   int
}

// EmotionSummary counts every logged emotion, in order of first appearance.
func (m *Manager) EmotionSummary(ctx context.Context, userID string) ([]EmotionCount, error) {
	state, err := m.repo.LoadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts := emotion.Count(state.EmotionLog)
	var out []EmotionCount
	seen := make(map[string]bool)
	for _, e := range state.EmotionLog {
		if seen[e.Emotion] {
			continue
		}
		seen[e.Emotion] = true
		out = append(out, EmotionCount{Emotion: e.Emotion, Count: counts[e.Emotion]})
	}
	return out, nil
}

// TopicHistory returns the last texts logged under topic, oldest first.
func (m *Manager) TopicHistory(ctx context.Context, userID, topic string) ([]string, error) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if !emotion.IsTopic(topic) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	state, err := m.repo.LoadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := state.TopicLog[topic]
	if len(entries) > topicHistorySize {
		entries = entries[len(entries)-topicHistorySize:]
	}
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return texts, nil
}

// Counsel generates advice from the most recent emotions.
func (m *Manager) Counsel(ctx context.Context, userID string) (string, error) {
	state, err := m.repo.LoadState(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(state.EmotionLog) < counselMinEntries {
		return "", ErrNotEnoughData
	}
	recent := state.EmotionLog
	if len(recent) > counselWindow {
		recent = recent[len(recent)-counselWindow:]
	}

	req, err := prompt.CounselRequest(recent)
	if err != nil {
		return "", err
	}
	text, err := models.GenerateText(ctx, m.llm, req)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("counsel").Inc()
		return "", err
	}
	m.saveLastResponse(ctx, userID, KindCounsel, text)
	return text, nil
}

// SummarizeText returns a practical summary of text.
func (m *Manager) SummarizeText(ctx context.Context, userID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}
	summary, err := models.GenerateText(ctx, m.llm, prompt.TextSummaryRequest(text))
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("summarize_text").Inc()
		return "", err
	}
	m.saveLastResponse(ctx, userID, KindSummarize, summary)
	return summary, nil
}

// Export returns a read-only snapshot of the user's whole state.
func (m *Manager) Export(ctx context.Context, userID string) (*types.UserMemoryState, error) {
	return m.repo.LoadState(ctx, userID)
}

// Start initializes the user.
func (m *Manager) Start(ctx context.Context, userID string) error {
	return m.repo.EnsureUser(ctx, userID)
}
