package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/easeaico/sophos/internal/metrics"
)

// SemanticIndex embeds facts into a VectorIndex and retrieves them by similarity.
type SemanticIndex struct {
	embedder Embedder
	index    VectorIndex
	topK     int
}

// NewSemanticIndex returns a SemanticIndex. topK defaults to 5.
func NewSemanticIndex(embedder Embedder, index VectorIndex, topK int) *SemanticIndex {
	if topK <= 0 {
		topK = 5
	}
	return &SemanticIndex{embedder: embedder, index: index, topK: topK}
}

// IndexFacts upserts one vector per changed fact. A failing fact is logged
// and skipped; the count of indexed facts is returned.
func (s *SemanticIndex) IndexFacts(ctx context.Context, userID string, changed map[string]string) int {
	keys := make([]string, 0, len(changed))
	for k := range changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indexed := 0
	for _, key := range keys {
		vec, err := s.embedder.EmbedDocument(ctx, factLine(key, changed[key]))
		if err != nil {
			metrics.IndexErrors.WithLabelValues("upsert").Inc()
			slog.Warn("failed to embed fact", "user_id", userID, "key", key, "error", err.Error())
			continue
		}
		if err := s.index.Upsert(ctx, IndexID(userID, key), vec); err != nil {
			metrics.IndexErrors.WithLabelValues("upsert").Inc()
			slog.Warn("failed to upsert fact vector", "user_id", userID, "key", key, "error", err.Error())
			continue
		}
		indexed++
	}
	metrics.FactsIndexed.Add(float64(indexed))
	return indexed
}

// Retrieve returns "key: value" lines for the facts most similar to query.
// Values come from facts, the current state, not from what was embedded.
func (s *SemanticIndex) Retrieve(ctx context.Context, userID, query string, facts map[string]string) []string {
	if strings.TrimSpace(query) == "" || len(facts) == 0 {
		return nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		metrics.IndexErrors.WithLabelValues("query").Inc()
		slog.Warn("failed to embed query", "user_id", userID, "error", err.Error())
		return nil
	}

	prefix := indexPrefix(userID)
	matches, err := s.index.Query(ctx, vec, s.topK, prefix)
	if err != nil {
		metrics.IndexErrors.WithLabelValues("query").Inc()
		slog.Warn("failed to query fact index", "user_id", userID, "error", err.Error())
		return nil
	}

	byID := make(map[string]string, len(facts))
	for key := range facts {
		byID[IndexID(userID, key)] = key
	}

	var lines []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if !strings.HasPrefix(m.ID, prefix) || seen[m.ID] {
			continue
		}
		key, ok := byID[m.ID]
		if !ok {
			continue
		}
		seen[m.ID] = true
		lines = append(lines, factLine(key, facts[key]))
	}
	return lines
}

func factLine(key, value string) string {
	return key + ": " + value
}
