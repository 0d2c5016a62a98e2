package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres opens and pings a gorm PostgreSQL connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ClosePostgres closes the pool behind db.
func ClosePostgres(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

// Migrate creates the documents and fact_vectors tables.
// fact_vectors needs pgvector, so it is created with raw SQL rather than AutoMigrate.
func Migrate(ctx context.Context, db *gorm.DB, dimensions int) error {
	if err := db.WithContext(ctx).AutoMigrate(&documentModel{}); err != nil {
		return fmt.Errorf("failed to migrate documents: %w", err)
	}
	for _, stmt := range migrationStatements(dimensions) {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// migrationStatements returns the raw DDL run after AutoMigrate. Vector
// search stays exact per owner, so no approximate index is built and one
// left by an earlier schema is dropped.
func migrationStatements(dimensions int) []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_documents_path_pattern
			ON documents (path text_pattern_ops)`,
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fact_vectors (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		`ALTER TABLE fact_vectors ADD COLUMN IF NOT EXISTS owner TEXT NOT NULL DEFAULT ''`,
		`UPDATE fact_vectors SET owner = substring(id from '^(.*:)') WHERE owner = '' AND position(':' in id) > 0`,
		`CREATE INDEX IF NOT EXISTS idx_fact_vectors_owner ON fact_vectors (owner)`,
		`DROP INDEX IF EXISTS idx_fact_vectors_embedding`,
	}
}
