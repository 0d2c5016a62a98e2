package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"google.golang.org/adk/model"

	"github.com/easeaico/sophos/internal/emotion"
	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/models"
	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
)

const (
	KindGeneral   = "geral"
	KindCounsel   = "conselheiro"
	KindSummarize = "resumir"
)

// ErrInvalidFeedback is returned for feedback payloads that cannot be parsed.
var ErrInvalidFeedback = errors.New("invalid feedback payload")

// Options tunes the Manager.
type Options struct {
	HistoryLimit int
	TopK         int
	StyleMargin  int
}

// Manager is the per-turn orchestrator of the tiered memory.
type Manager struct {
	repo       *Repo
	buffer     *Buffer
	summarizer *Summarizer
	extractor  *FactExtractor
	semantic   *SemanticIndex
	llm        model.LLM
	opts       Options
	now        func() time.Time
}

// NewManager wires the memory components over the given collaborators.
func NewManager(store DocumentStore, llm model.LLM, embedder Embedder, index VectorIndex, opts Options) *Manager {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.StyleMargin < 0 {
		opts.StyleMargin = 0
	}
	repo := NewRepo(store)
	return &Manager{
		repo:       repo,
		buffer:     NewBuffer(repo),
		summarizer: NewSummarizer(repo, llm, opts.HistoryLimit),
		extractor:  NewFactExtractor(llm),
		semantic:   NewSemanticIndex(embedder, index, opts.TopK),
		llm:        llm,
		opts:       opts,
		now:        time.Now,
	}
}

// Repo exposes the state repository.
func (m *Manager) Repo() *Repo {
	return m.repo
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Reply string
	// Notices are short confirmations of what was recorded.
	Notices []string
	// Prompt is the user-role prompt sent to the model.
	Prompt string
	// Generated is false when Reply is the apology fallback.
	Generated bool
}

// ProcessTurn handles one user message and always returns a reply.
func (m *Manager) ProcessTurn(ctx context.Context, userID, text string) string {
	return m.HandleTurn(ctx, userID, text).Reply
}

// HandleTurn runs the full turn pipeline. Store, extraction and index
// failures degrade the turn but never abort it.
func (m *Manager) HandleTurn(ctx context.Context, userID, text string) *TurnResult {
	start := time.Now()
	result := &TurnResult{Reply: prompt.Apology}
	defer func() {
		outcome := "ok"
		if !result.Generated {
			outcome = "apology"
		}
		metrics.TurnsTotal.WithLabelValues(outcome).Inc()
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	state, err := m.repo.LoadState(ctx, userID)
	if err != nil {
		slog.Error("failed to load user state", "user_id", userID, "error", err.Error())
		return result
	}

	if _, err := m.summarizer.CompactIfNeeded(ctx, state); err != nil {
		slog.Warn("context compaction skipped", "user_id", userID, "error", err.Error())
	}

	if err := m.repo.EnsureUser(ctx, userID); err != nil {
		slog.Error("failed to initialize user", "user_id", userID, "error", err.Error())
	}

	directive := StyleDirective(state.FeedbackLog, m.opts.StyleMargin)

	appended, err := m.buffer.Append(ctx, state, text)
	if err != nil {
		slog.Error("failed to append context", "user_id", userID, "error", err.Error())
	}

	// blank and repeated turns were already mined for facts
	facts := map[string]string{}
	if appended || err != nil {
		facts = m.extractor.Extract(ctx, userID, text)
	}
	patterns := PatternFacts(text)
	maps.Copy(facts, patterns)
	m.rememberFacts(ctx, state, facts)
	if date, ok := patterns[FactCurrentDate]; ok {
		result.Notices = append(result.Notices, fmt.Sprintf("📅 Data registrada: %s", date))
	}

	if notice := m.recordTags(ctx, state, text); notice != "" {
		result.Notices = append(result.Notices, notice)
	}

	known := state.FactValues()
	retrieved := m.semantic.Retrieve(ctx, userID, text, known)

	var profile string
	if state.Profile != nil {
		profile = emotion.DisplayName(state.Profile.Label)
	}

	userPrompt, err := prompt.BuildTurn(prompt.TurnContext{
		Context:     RenderContext(state, m.opts.HistoryLimit),
		Facts:       known,
		Profile:     profile,
		Retrieved:   retrieved,
		UserMessage: text,
	})
	if err != nil {
		slog.Error("failed to build prompt", "user_id", userID, "error", err.Error())
		return result
	}
	result.Prompt = userPrompt

	reply, err := models.GenerateText(ctx, m.llm, prompt.TurnRequest(userPrompt, directive))
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("composer").Inc()
		slog.Error("failed to generate reply", "user_id", userID, "error", err.Error())
		return result
	}
	result.Reply = reply
	result.Generated = true

	m.saveLastResponse(ctx, userID, KindGeneral, reply)
	return result
}

// rememberFacts merges facts into state, persists the changed ones and indexes them.
func (m *Manager) rememberFacts(ctx context.Context, state *types.UserMemoryState, facts map[string]string) {
	if len(facts) == 0 {
		return
	}
	changed := MergeFacts(state, facts, m.now())
	persisted := make(map[string]string, len(changed))
	for key, value := range changed {
		if err := m.repo.SetFact(ctx, state.UserID, key, state.Facts[key]); err != nil {
			slog.Error("failed to save fact", "user_id", state.UserID, "key", key, "error", err.Error())
			continue
		}
		persisted[key] = value
	}
	m.semantic.IndexFacts(ctx, state.UserID, persisted)
}

// recordTags stores the turn's emotion and topic tags and returns a notice
// when an emotion was recorded.
func (m *Manager) recordTags(ctx context.Context, state *types.UserMemoryState, text string) string {
	tags := emotion.Tag(text)
	now := m.now()
	var notice string

	if tags.Emotion != "" {
		entry := types.EmotionEntry{Emotion: tags.Emotion, Timestamp: now}
		if err := m.repo.PushEmotion(ctx, state.UserID, entry); err != nil {
			slog.Error("failed to save emotion", "user_id", state.UserID, "error", err.Error())
		} else {
			state.EmotionLog = append(state.EmotionLog, entry)
			notice = fmt.Sprintf("🧠 Emoção '%s' registrada.", tags.Emotion)
		}
		for _, topic := range tags.LinkedTopics {
			if err := m.repo.PushEmotionByTopic(ctx, state.UserID, topic, entry); err != nil {
				slog.Error("failed to link emotion to topic", "user_id", state.UserID, "topic", topic, "error", err.Error())
				continue
			}
			state.EmotionByTopic[topic] = append(state.EmotionByTopic[topic], entry)
		}
	}

	if tags.Topic != "" {
		entry := types.TopicEntry{Text: text, Timestamp: now}
		if err := m.repo.PushTopic(ctx, state.UserID, tags.Topic, entry); err != nil {
			slog.Error("failed to save topic", "user_id", state.UserID, "topic", tags.Topic, "error", err.Error())
		} else {
			state.TopicLog[tags.Topic] = append(state.TopicLog[tags.Topic], entry)
		}
	}
	return notice
}

func (m *Manager) saveLastResponse(ctx context.Context, userID, kind, text string) {
	last := types.LastResponse{Kind: kind, Text: text, Timestamp: m.now()}
	if err := m.repo.SetLastResponse(ctx, userID, last); err != nil {
		slog.Error("failed to save last response", "user_id", userID, "error", err.Error())
	}
}

// ParseFeedbackPayload parses "<kind>:<like|dislike>".
func ParseFeedbackPayload(payload string) (string, types.Signal, error) {
	kind, value, ok := strings.Cut(payload, ":")
	kind = strings.TrimSpace(kind)
	if !ok || kind == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFeedback, payload)
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "like", string(types.SignalApprove):
		return kind, types.SignalApprove, nil
	case "dislike", string(types.SignalDisapprove):
		return kind, types.SignalDisapprove, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFeedback, payload)
	}
}

// RecordFeedback attributes signal to the user's last response.
func (m *Manager) RecordFeedback(ctx context.Context, userID, kind string, signal types.Signal) error {
	if signal != types.SignalApprove && signal != types.SignalDisapprove {
		return fmt.Errorf("%w: unknown signal %q", ErrInvalidFeedback, signal)
	}
	last, err := m.repo.LastResponse(ctx, userID)
	if err != nil {
		return err
	}
	var response string
	if last != nil {
		response = last.Text
	}
	entry := types.FeedbackEntry{
		Kind:      kind,
		Signal:    signal,
		Response:  response,
		Timestamp: m.now(),
	}
	if err := m.repo.PushFeedback(ctx, userID, entry); err != nil {
		return err
	}
	metrics.FeedbackTotal.WithLabelValues(string(signal)).Inc()
	return nil
}

// Profile returns the cached profile label, computing it when absent or
// when refresh is set.
func (m *Manager) Profile(ctx context.Context, userID string, refresh bool) (string, error) {
	state, err := m.repo.LoadState(ctx, userID)
	if err != nil {
		return "", err
	}
	if !refresh && state.Profile != nil {
		return state.Profile.Label, nil
	}
	label := emotion.Classify(state.EmotionLog, state.EmotionByTopic)
	if err := m.repo.SetProfile(ctx, userID, types.Profile{Label: label, Timestamp: m.now()}); err != nil {
		return "", err
	}
	return label, nil
}
