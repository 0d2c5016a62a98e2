package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentModel maps to the documents table.
type documentModel struct {
	Path      string          `gorm:"primaryKey;type:text COLLATE \"C\""`
	Value     json.RawMessage `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (documentModel) TableName() string {
	return "documents"
}

// GormBackend stores document leaves in PostgreSQL.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend returns a GormBackend.
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (b *GormBackend) GetLeaf(ctx context.Context, path string) (json.RawMessage, bool, error) {
	var record documentModel
	err := b.db.WithContext(ctx).Where("path = ?", path).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query document: %w", err)
	}
	return record.Value, true, nil
}

func (b *GormBackend) PutLeaf(ctx context.Context, path string, value json.RawMessage) error {
	return upsertDocument(b.db.WithContext(ctx), path, value)
}

func (b *GormBackend) ReplaceLeaf(ctx context.Context, path string, value json.RawMessage) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteDocumentTree(tx, path); err != nil {
			return err
		}
		return upsertDocument(tx, path, value)
	})
}

func (b *GormBackend) ListPrefix(ctx context.Context, prefix string) ([]Leaf, error) {
	var records []documentModel
	if err := b.db.WithContext(ctx).
		Where(`path LIKE ? ESCAPE '\'`, likePrefix(prefix)).
		Order(`path COLLATE "C" ASC`).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	leaves := make([]Leaf, 0, len(records))
	for _, record := range records {
		leaves = append(leaves, Leaf{Path: record.Path, Value: record.Value})
	}
	return leaves, nil
}

func (b *GormBackend) DeleteTree(ctx context.Context, path string) error {
	return deleteDocumentTree(b.db.WithContext(ctx), path)
}

// Close is a no-op; the shared *gorm.DB is closed by its owner.
func (b *GormBackend) Close() error {
	return nil
}

func upsertDocument(db *gorm.DB, path string, value json.RawMessage) error {
	record := documentModel{
		Path:      path,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func deleteDocumentTree(db *gorm.DB, path string) error {
	if err := db.
		Where(`path = ? OR path LIKE ? ESCAPE '\'`, path, likePrefix(path+"/")).
		Delete(&documentModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// likePrefix turns prefix into a LIKE pattern matching it literally, so
// the text_pattern_ops index on documents.path can serve prefix scans.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
