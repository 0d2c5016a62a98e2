package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/adk/model"

	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/models"
	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
)

// Summarizer folds raw turns beyond the history limit into the digest.
type Summarizer struct {
	repo  *Repo
	llm   model.LLM
	limit int
	now   func() time.Time
}

// NewSummarizer returns a Summarizer.
func NewSummarizer(repo *Repo, llm model.LLM, historyLimit int) *Summarizer {
	return &Summarizer{repo: repo, llm: llm, limit: historyLimit, now: time.Now}
}

// CompactIfNeeded summarizes the oldest entries when the buffer is over the
// limit, deletes those entries and then replaces the digest. On a generation
// failure nothing is changed.
func (s *Summarizer) CompactIfNeeded(ctx context.Context, state *types.UserMemoryState) (bool, error) {
	if len(state.RawContext) <= s.limit {
		return false, nil
	}

	overflow := state.RawContext[:len(state.RawContext)-s.limit]
	texts := make([]string, 0, len(overflow))
	keys := make([]string, 0, len(overflow))
	for _, e := range overflow {
		texts = append(texts, e.Text)
		keys = append(keys, e.Key)
	}

	text, err := models.GenerateText(ctx, s.llm, prompt.SummaryRequest(texts))
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("summarizer").Inc()
		metrics.Compactions.WithLabelValues("error").Inc()
		return false, fmt.Errorf("failed to summarize context: %w", err)
	}

	// evict before replacing the digest so a failed delete keeps the old digest
	if err := s.repo.DeleteContext(ctx, state.UserID, keys); err != nil {
		metrics.Compactions.WithLabelValues("error").Inc()
		return false, err
	}
	state.RawContext = append([]types.ContextEntry(nil), state.RawContext[len(overflow):]...)

	digest := types.Digest{Text: text, Timestamp: s.now()}
	if err := s.repo.SetSummary(ctx, state.UserID, digest); err != nil {
		metrics.Compactions.WithLabelValues("error").Inc()
		return false, err
	}
	state.Summary = &digest

	metrics.Compactions.WithLabelValues("ok").Inc()
	slog.Info("compacted raw context", "user_id", state.UserID, "evicted", len(overflow))
	return true, nil
}
