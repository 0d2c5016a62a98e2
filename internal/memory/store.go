package memory

import (
	"context"
	"encoding/json"

	"github.com/easeaico/sophos/internal/types"
)

// DocumentStore is the hierarchical path-addressed store user state lives in.
type DocumentStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	Push(ctx context.Context, path string, value any) (string, error)
	Delete(ctx context.Context, path string) error
}

// VectorIndex is a similarity index shared by all users and
// disambiguated by id prefix.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32) error
	Query(ctx context.Context, vector []float32, topK int, idPrefix string) ([]types.VectorMatch, error)
}

// Embedder converts text into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}
