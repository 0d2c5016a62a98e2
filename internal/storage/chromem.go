package storage

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/easeaico/sophos/internal/types"
)

const chromemCollection = "fact_vectors"

// ChromemIndex is an embedded similarity index for single-process deployments.
type ChromemIndex struct {
	col *chromem.Collection
}

// NewChromemIndex opens an index. An empty path keeps everything in memory.
func NewChromemIndex(path string) (*ChromemIndex, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	}

	// embeddings are always supplied by the caller, so no embedding func
	col, err := db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &ChromemIndex{col: col}, nil
}

// Upsert stores vector under id. AddDocument overwrites an existing id.
func (i *ChromemIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	doc := chromem.Document{
		ID:        id,
		Content:   id,
		Embedding: append([]float32(nil), vector...),
		Metadata:  map[string]string{"owner": ownerOf(id)},
	}
	if err := i.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// Query returns up to topK ids starting with idPrefix, most similar first.
func (i *ChromemIndex) Query(ctx context.Context, vector []float32, topK int, idPrefix string) ([]types.VectorMatch, error) {
	if len(vector) == 0 || topK <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection
	if n := i.col.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	var where map[string]string
	if strings.HasSuffix(idPrefix, ":") {
		where = map[string]string{"owner": idPrefix}
	}

	results, err := i.col.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromem: %w", err)
	}

	matches := make([]types.VectorMatch, 0, len(results))
	for _, r := range results {
		if !strings.HasPrefix(r.ID, idPrefix) {
			continue
		}
		matches = append(matches, types.VectorMatch{ID: r.ID, Score: float64(r.Similarity)})
	}
	return matches, nil
}

// ownerOf returns id up to and including its last ':'.
func ownerOf(id string) string {
	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		return id[:idx+1]
	}
	return ""
}
