package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/easeaico/sophos/internal/metrics"
)

// GenAIEmbedder embeds text with a Gemini embedding model.
type GenAIEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGenAIEmbedder returns a GenAIEmbedder.
func NewGenAIEmbedder(ctx context.Context, apiKey, modelName string, dimensions int) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google api key is required for embeddings")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	if dimensions <= 0 {
		dimensions = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIEmbedder{
		client:     client,
		model:      modelName,
		dimensions: dimensions,
	}, nil
}

func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (e *GenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

func (e *GenAIEmbedder) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	dims := int32(e.dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response")
	}
	values := resp.Embeddings[0].Values
	if len(values) == e.dimensions {
		return values, nil
	}
	if len(values) > e.dimensions {
		slog.Warn("embedding dimensions exceed target, truncating", "actual", len(values), "target", e.dimensions, "model", e.model)
		return values[:e.dimensions], nil
	}
	return nil, fmt.Errorf("embedding dimensions mismatch: got %d want %d", len(values), e.dimensions)
}

// CachedEmbedder decorates an Embedder with an in-memory TTL cache.
// Repeated queries within a conversation skip the remote call.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

// NewCachedEmbedder wraps inner. ttl is the expiration of cached vectors.
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.get(ctx, "q:"+text, func() ([]float32, error) {
		return c.inner.EmbedQuery(ctx, text)
	})
}

func (c *CachedEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.get(ctx, "d:"+text, func() ([]float32, error) {
		return c.inner.EmbedDocument(ctx, text)
	})
}

func (c *CachedEmbedder) get(_ context.Context, key string, load func() ([]float32, error)) ([]float32, error) {
	if val, found := c.cache.Get(key); found {
		if vec, ok := val.([]float32); ok {
			metrics.EmbedCacheHits.Inc()
			return vec, nil
		}
	}

	vec, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, cache.DefaultExpiration)
	return vec, nil
}
