package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easeaico/sophos/internal/backup"
	"github.com/easeaico/sophos/internal/emotion"
	"github.com/easeaico/sophos/internal/memory"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, userID, command, args string) {
	args = strings.TrimSpace(args)
	switch command {
	case "start":
		b.start(ctx, chatID, userID)
	case "comandos", "help":
		b.sendMarkdown(chatID, commandsText)
	case "perfil":
		b.profile(ctx, chatID, userID)
	case "resumo":
		b.emotionSummary(ctx, chatID, userID)
	case "consultar":
		b.consult(ctx, chatID, userID, args)
	case "resumir":
		b.summarize(ctx, chatID, userID, args)
	case "conselheiro":
		b.counsel(ctx, chatID, userID)
	case "exportar":
		b.export(ctx, chatID, userID)
	default:
		b.send(chatID, unknownCommand, nil)
	}
}

func (b *Bot) start(ctx context.Context, chatID int64, userID string) {
	if err := b.memory.Start(ctx, userID); err != nil {
		slog.Error("failed to start user", "user_id", userID, "error", err.Error())
	}
	b.send(chatID, welcomeText, nil)
}

func (b *Bot) profile(ctx context.Context, chatID int64, userID string) {
	label, err := b.memory.Profile(ctx, userID, true)
	if err != nil {
		slog.Error("failed to compute profile", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}
	b.sendMarkdown(chatID, fmt.Sprintf("🧩 Seu perfil atual: *%s*", emotion.DisplayName(label)))
}

func (b *Bot) emotionSummary(ctx context.Context, chatID int64, userID string) {
	counts, err := b.memory.EmotionSummary(ctx, userID)
	if err != nil {
		slog.Error("failed to summarize emotions", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}
	if len(counts) == 0 {
		b.send(chatID, noEmotions, nil)
		return
	}
	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("- %s: %dx", c.Emotion, c.Count))
	}
	b.send(chatID, "📊 Resumo emocional:\n"+strings.Join(lines, "\n"), nil)
}

func (b *Bot) consult(ctx context.Context, chatID int64, userID, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.send(chatID, consultUsage, nil)
		return
	}
	topic := strings.ToLower(fields[0])

	texts, err := b.memory.TopicHistory(ctx, userID, topic)
	if err != nil && !errors.Is(err, memory.ErrUnknownTopic) {
		slog.Error("failed to read topic history", "user_id", userID, "topic", topic, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}
	if len(texts) == 0 {
		b.send(chatID, fmt.Sprintf("Nenhum registro de '%s'", topic), nil)
		return
	}
	b.send(chatID, fmt.Sprintf("📂 Últimos sobre '%s':\n%s", topic, strings.Join(texts, "\n")), nil)
}

func (b *Bot) summarize(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		b.send(chatID, summarizeUsage, nil)
		return
	}
	summary, err := b.memory.SummarizeText(ctx, userID, args)
	if err != nil {
		slog.Error("failed to summarize text", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}
	b.send(chatID, "📝 "+summary, feedbackKeyboard(memory.KindSummarize))
}

func (b *Bot) counsel(ctx context.Context, chatID int64, userID string) {
	advice, err := b.memory.Counsel(ctx, userID)
	if errors.Is(err, memory.ErrNotEnoughData) {
		b.send(chatID, notEnoughCounsel, nil)
		return
	}
	if err != nil {
		slog.Error("failed to generate counsel", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}
	b.send(chatID, "📜 "+advice, feedbackKeyboard(memory.KindCounsel))
}

func (b *Bot) export(ctx context.Context, chatID int64, userID string) {
	state, err := b.memory.Export(ctx, userID)
	if err != nil {
		slog.Error("failed to load state for export", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}

	files, locations, err := b.exporter.Export(ctx, state)
	if errors.Is(err, backup.ErrEmpty) {
		b.send(chatID, nothingToExport, nil)
		return
	}
	if err != nil {
		// files are still rendered when only a sink failed
		slog.Warn("export stored partially", "user_id", userID, "error", err.Error())
	}
	if len(files) == 0 {
		b.send(chatID, commandFailed, nil)
		return
	}
	slog.Info("export stored", "user_id", userID, "locations", locations)

	for _, f := range files {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
		if _, err := b.api.Send(doc); err != nil {
			slog.Error("failed to send export", "user_id", userID, "file", f.Name, "error", err.Error())
		}
	}
}
