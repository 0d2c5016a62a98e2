package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/sophos/internal/types"
)

// factVectorModel maps to the fact_vectors table.
type factVectorModel struct {
	ID string `gorm:"primaryKey"`
	// Owner is the id up to its last ':' and is btree indexed.
	Owner string
	// Embedding is the vector of the "key: value" text of one fact.
	Embedding pgvector.Vector `gorm:"type:vector"`
	UpdatedAt time.Time
}

func (factVectorModel) TableName() string {
	return "fact_vectors"
}

// PgVectorIndex is a similarity index on PostgreSQL + pgvector.
type PgVectorIndex struct {
	db *gorm.DB
}

// NewPgVectorIndex returns a PgVectorIndex.
func NewPgVectorIndex(db *gorm.DB) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

// Upsert stores vector under id, replacing any previous vector.
func (i *PgVectorIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	record := factVectorModel{
		ID:        id,
		Owner:     ownerOf(id),
		Embedding: pgvector.NewVector(vector),
		UpdatedAt: time.Now(),
	}
	if err := i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner", "embedding", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert fact vector: %w", err)
	}
	return nil
}

// Query returns up to topK ids starting with idPrefix, most similar first.
// The search is exact over the owner's rows.
func (i *PgVectorIndex) Query(ctx context.Context, vector []float32, topK int, idPrefix string) ([]types.VectorMatch, error) {
	if len(vector) == 0 || topK <= 0 {
		return nil, nil
	}

	filter, arg := vectorFilter(idPrefix)
	query := `
		SELECT id, 1 - (embedding <=> ?) AS score
		FROM fact_vectors
		WHERE ` + filter + `
		ORDER BY embedding <=> ?
		LIMIT ?`

	v := pgvector.NewVector(vector)
	var results []types.VectorMatch
	if err := i.db.WithContext(ctx).
		Raw(query, v, arg, v, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search fact vectors: %w", err)
	}
	return results, nil
}

// vectorFilter picks the indexed owner column when idPrefix names a whole
// owner and falls back to a pattern match otherwise.
func vectorFilter(idPrefix string) (string, string) {
	if idPrefix != "" && ownerOf(idPrefix) == idPrefix {
		return "owner = ?", idPrefix
	}
	return `id LIKE ? ESCAPE '\'`, likePrefix(idPrefix)
}
