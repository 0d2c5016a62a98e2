// Package main boots the Sophos Telegram assistant and wires its dependencies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easeaico/sophos/internal/backup"
	"github.com/easeaico/sophos/internal/bot"
	"github.com/easeaico/sophos/internal/config"
	"github.com/easeaico/sophos/internal/memory"
	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/models"
	"github.com/easeaico/sophos/internal/scheduler"
	"github.com/easeaico/sophos/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded",
		"provider", cfg.LLMProvider,
		"chat_model", cfg.ChatModel,
		"embedding_model", cfg.EmbeddingModel,
		"store", cfg.StoreBackend,
		"index", cfg.IndexBackend,
	)

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatalf("sophos stopped with error: %v", err)
	}
	slog.Info("shutdown complete")
}

// run owns every resource it opens, so its defers run before main exits.
func run(ctx context.Context, cfg config.Config) error {
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer stores.Close()

	if err := stores.Migrate(ctx, cfg.EmbeddingDims); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	embedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	llm, err := models.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	manager := memory.NewManager(stores.Documents, llm, memory.NewCachedEmbedder(embedder, cfg.EmbedCacheTTL), stores.Index, memory.Options{
		HistoryLimit: cfg.HistoryLimit,
		TopK:         cfg.TopK,
		StyleMargin:  cfg.StyleMargin,
	})

	var transcriber bot.Transcriber
	if cfg.OpenAIAPIKey != "" {
		whisper, err := models.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.TranscribeModel, "")
		if err != nil {
			return fmt.Errorf("failed to create transcriber: %w", err)
		}
		transcriber = whisper
	} else {
		slog.Warn("OPENAI_API_KEY not set, voice notes are disabled")
	}

	sinks, err := backup.DefaultSinks(ctx, cfg.BackupDir, cfg.BackupS3Bucket)
	if err != nil {
		return fmt.Errorf("failed to create backup sinks: %w", err)
	}

	aggregator := memory.NewWeeklyAggregator(manager.Repo(), cfg.Location(), cfg.WeeklyConcurrency)
	sched := scheduler.New(cfg.Location())
	err = sched.Every("weekly_pattern", cfg.WeeklyInterval, func(ctx context.Context) error {
		report, err := aggregator.Run(ctx)
		if err != nil {
			return err
		}
		slog.Info("weekly patterns updated", "users", report.Users, "failed", report.Failed)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule weekly aggregation: %w", err)
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	api, err := bot.NewTelegramAPI(cfg.TelegramToken, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	slog.Info("telegram bot authorized", "username", api.GetSelf().UserName)
	assistant := bot.New(api, manager, transcriber, backup.NewExporter(sinks...))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, server, assistant.Run)
}

// serve runs the HTTP server and the bot until ctx is done or either of them
// fails. The bot is always drained before serve returns.
func serve(ctx context.Context, server *http.Server, runBot func(context.Context) error) error {
	botCtx, cancelBot := context.WithCancel(ctx)
	defer cancelBot()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	botDone := make(chan error, 1)
	go func() {
		botDone <- runBot(botCtx)
	}()

	var runErr error
	botFinished := false
	select {
	case runErr = <-serverErr:
	case runErr = <-botDone:
		botFinished = true
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	cancelBot()
	if !botFinished {
		if err := <-botDone; err != nil && runErr == nil {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shut down http server", "error", err.Error())
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("✅ Sophos está rodando"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
