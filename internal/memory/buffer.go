package memory

import (
	"context"
	"strings"
	"time"

	"github.com/easeaico/sophos/internal/types"
)

const (
	digestPrefix  = "Resumo anterior: "
	speakerPrefix = "Usuário: "
)

// Buffer is the short-term raw turn log.
type Buffer struct {
	repo *Repo
	now  func() time.Time
}

// NewBuffer returns a Buffer.
func NewBuffer(repo *Repo) *Buffer {
	return &Buffer{repo: repo, now: time.Now}
}

// Append pushes text unless it is blank or repeats the latest entry.
// It reports whether an entry was written and keeps state in sync.
func (b *Buffer) Append(ctx context.Context, state *types.UserMemoryState, text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, nil
	}
	if n := len(state.RawContext); n > 0 && strings.TrimSpace(state.RawContext[n-1].Text) == trimmed {
		return false, nil
	}

	entry := types.ContextEntry{Text: text, Timestamp: b.now()}
	key, err := b.repo.AppendContext(ctx, state.UserID, entry)
	if err != nil {
		return false, err
	}
	entry.Key = key
	state.RawContext = append(state.RawContext, entry)
	return true, nil
}

// RenderContext returns the digest followed by the last limit raw turns.
func RenderContext(state *types.UserMemoryState, limit int) string {
	var lines []string
	if state.Summary != nil && state.Summary.Text != "" {
		lines = append(lines, digestPrefix+state.Summary.Text)
	}

	entries := state.RawContext
	if limit >= 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for _, e := range entries {
		lines = append(lines, speakerPrefix+e.Text)
	}
	return strings.Join(lines, "\n")
}
