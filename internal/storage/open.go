package storage

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/easeaico/sophos/internal/config"
	"github.com/easeaico/sophos/internal/types"
)

// Index is a similarity index keyed by string ids.
type Index interface {
	Upsert(ctx context.Context, id string, vector []float32) error
	Query(ctx context.Context, vector []float32, topK int, idPrefix string) ([]types.VectorMatch, error)
}

// Stores bundles the configured document store and similarity index.
type Stores struct {
	Documents *Tree
	Index     Index
	// DB is set when any backend uses PostgreSQL.
	DB *gorm.DB
}

// Open connects the backends selected by cfg.
func Open(ctx context.Context, cfg config.Config) (*Stores, error) {
	s := &Stores{}

	if cfg.NeedsDatabase() {
		db, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.DB = db
	}

	switch cfg.StoreBackend {
	case "postgres":
		s.Documents = NewTree(NewGormBackend(s.DB))
	case "redis":
		client, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Documents = NewTree(NewRedisBackend(client))
	case "memory":
		slog.Warn("using in-memory document store, state is lost on restart")
		s.Documents = NewTree(NewMemoryBackend())
	default:
		s.Close()
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}

	switch cfg.IndexBackend {
	case "pgvector":
		s.Index = NewPgVectorIndex(s.DB)
	case "chromem":
		idx, err := NewChromemIndex(cfg.ChromemPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Index = idx
	default:
		s.Close()
		return nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}

	slog.Info("storage opened", "store", cfg.StoreBackend, "index", cfg.IndexBackend)
	return s, nil
}

// Migrate prepares the PostgreSQL schema when a database is in use.
func (s *Stores) Migrate(ctx context.Context, dimensions int) error {
	if s.DB == nil {
		return nil
	}
	return Migrate(ctx, s.DB, dimensions)
}

// Close releases every backend.
func (s *Stores) Close() {
	if s.Documents != nil {
		if err := s.Documents.Close(); err != nil {
			slog.Warn("failed to close document store", "error", err.Error())
		}
	}
	ClosePostgres(s.DB)
}
