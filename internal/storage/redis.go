package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisDocumentPrefix = "sophos:doc:"

// RedisBackend stores each leaf as a plain string key.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend returns a RedisBackend over an existing client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// OpenRedis parses url, connects and pings.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (b *RedisBackend) GetLeaf(ctx context.Context, path string) (json.RawMessage, bool, error) {
	raw, err := b.client.Get(ctx, redisDocumentPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	return raw, true, nil
}

func (b *RedisBackend) PutLeaf(ctx context.Context, path string, value json.RawMessage) error {
	if err := b.client.Set(ctx, redisDocumentPrefix+path, []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (b *RedisBackend) ReplaceLeaf(ctx context.Context, path string, value json.RawMessage) error {
	keys, err := b.scanKeys(ctx, path+"/")
	if err != nil {
		return err
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Set(ctx, redisDocumentPrefix+path, []byte(value), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

func (b *RedisBackend) ListPrefix(ctx context.Context, prefix string) ([]Leaf, error) {
	keys, err := b.scanKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	leaves := make([]Leaf, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// removed between SCAN and MGET
			continue
		}
		leaves = append(leaves, Leaf{
			Path:  strings.TrimPrefix(keys[i], redisDocumentPrefix),
			Value: json.RawMessage(s),
		})
	}
	return leaves, nil
}

func (b *RedisBackend) DeleteTree(ctx context.Context, path string) error {
	keys, err := b.scanKeys(ctx, path+"/")
	if err != nil {
		return err
	}
	keys = append(keys, redisDocumentPrefix+path)
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, escapeGlob(redisDocumentPrefix+prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return keys, nil
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
