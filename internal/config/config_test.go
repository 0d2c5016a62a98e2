package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_BACKEND", "INDEX_BACKEND", "LLM_PROVIDER", "HTTP_ADDR", "HISTORY_LIMIT", "WEEKLY_INTERVAL", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := Read()
	require.Equal(t, "postgres", cfg.StoreBackend)
	require.Equal(t, "pgvector", cfg.IndexBackend)
	require.Equal(t, "openai", cfg.LLMProvider)
	require.Equal(t, ":3000", cfg.HTTPAddr)
	require.Equal(t, 10, cfg.HistoryLimit)
	require.Equal(t, 7*24*time.Hour, cfg.WeeklyInterval)
	require.Equal(t, "America/Sao_Paulo", cfg.Timezone)
}

func TestReadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("TOP_K", "not-a-number")
	t.Setenv("EMBED_CACHE_TTL", "30s")

	cfg := Read()
	require.Equal(t, "redis", cfg.StoreBackend)
	require.Equal(t, 20, cfg.HistoryLimit)
	require.Equal(t, 5, cfg.TopK)
	require.Equal(t, 30*time.Second, cfg.EmbedCacheTTL)
}

func TestValidateStorage(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres without url", Config{StoreBackend: "postgres", IndexBackend: "chromem"}, true},
		{"pgvector without url", Config{StoreBackend: "memory", IndexBackend: "pgvector"}, true},
		{"redis without url", Config{StoreBackend: "redis", IndexBackend: "chromem"}, true},
		{"embedded", Config{StoreBackend: "memory", IndexBackend: "chromem"}, false},
		{"postgres", Config{StoreBackend: "postgres", IndexBackend: "pgvector", DatabaseURL: "postgres://x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateStorage()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestProviderAPIKey(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "o", XAIAPIKey: "x", OpenRouterAPIKey: "r", GoogleAPIKey: "g"}
	for provider, want := range map[string]string{"": "o", "openai": "o", "grok": "x", "xai": "x", "openrouter": "r", "gemini": "g"} {
		cfg.LLMProvider = provider
		require.Equal(t, want, cfg.ProviderAPIKey(), provider)
	}
}

func TestLocationAndLevel(t *testing.T) {
	require.Equal(t, time.UTC, Config{Timezone: "Nowhere/Invalid"}.Location())
	require.Equal(t, "America/Sao_Paulo", Config{Timezone: "America/Sao_Paulo"}.Location().String())
	require.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	require.Equal(t, slog.LevelInfo, Config{}.SlogLevel())
}

func TestReadStyleMargin(t *testing.T) {
	t.Setenv("STYLE_MARGIN", "0")
	require.Equal(t, 0, Read().StyleMargin)

	t.Setenv("STYLE_MARGIN", "-3")
	require.Equal(t, 5, Read().StyleMargin)
}
