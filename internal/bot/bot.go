package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easeaico/sophos/internal/backup"
	"github.com/easeaico/sophos/internal/memory"
	"github.com/easeaico/sophos/internal/types"
)

// Memory is the memory manager surface the bot drives.
type Memory interface {
	HandleTurn(ctx context.Context, userID, text string) *memory.TurnResult
	Start(ctx context.Context, userID string) error
	RecordFeedback(ctx context.Context, userID, kind string, signal types.Signal) error
	Profile(ctx context.Context, userID string, refresh bool) (string, error)
	EmotionSummary(ctx context.Context, userID string) ([]memory.EmotionCount, error)
	TopicHistory(ctx context.Context, userID, topic string) ([]string, error)
	Counsel(ctx context.Context, userID string) (string, error)
	SummarizeText(ctx context.Context, userID, text string) (string, error)
	Export(ctx context.Context, userID string) (*types.UserMemoryState, error)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Exporter renders and stores a user's backup.
type Exporter interface {
	Export(ctx context.Context, state *types.UserMemoryState) ([]backup.File, []string, error)
}

// Bot receives Telegram updates and answers them. Each update is handled
// in its own goroutine.
type Bot struct {
	api         TelegramBot
	memory      Memory
	transcriber Transcriber
	exporter    Exporter
	httpClient  *http.Client
	wg          sync.WaitGroup
}

// New returns a Bot. transcriber may be nil to disable voice notes; a nil
// exporter renders backups without storing them.
func New(api TelegramBot, mem Memory, transcriber Transcriber, exporter Exporter) *Bot {
	if exporter == nil {
		exporter = backup.NewExporter()
	}
	return &Bot{
		api:         api,
		memory:      mem,
		transcriber: transcriber,
		exporter:    exporter,
		httpClient:  http.DefaultClient,
	}
}

// Run polls updates until ctx is done, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	slog.Info("telegram polling started", "username", b.api.GetSelf().UserName)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling update", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg.Chat.ID, userID, msg.Command(), msg.CommandArguments())
	case msg.Voice != nil:
		b.handleVoice(ctx, msg.Chat.ID, userID, msg.Voice.FileID)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, msg.Chat.ID, userID, msg.Text)
	}
}

func (b *Bot) handleText(ctx context.Context, chatID int64, userID, text string) {
	result := b.memory.HandleTurn(ctx, userID, text)
	for _, notice := range result.Notices {
		b.send(chatID, notice, nil)
	}
	if result.Generated {
		b.send(chatID, result.Reply, feedbackKeyboard(memory.KindGeneral))
		return
	}
	b.send(chatID, result.Reply, nil)
}

func (b *Bot) handleVoice(ctx context.Context, chatID int64, userID, fileID string) {
	if b.transcriber == nil {
		b.send(chatID, voiceUnavailable, nil)
		return
	}

	text, err := b.transcribe(ctx, fileID)
	if err != nil {
		slog.Error("failed to transcribe voice note", "user_id", userID, "error", err.Error())
		b.send(chatID, voiceFailed, nil)
		return
	}

	b.send(chatID, "🗣️ Você disse: "+text, nil)
	b.handleText(ctx, chatID, userID, text)
}

func (b *Bot) transcribe(ctx context.Context, fileID string) (string, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve voice file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download voice file: unexpected status %d", resp.StatusCode)
	}

	text, err := b.transcriber.Transcribe(ctx, "voice.ogg", resp.Body)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty transcription")
	}
	return text, nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		slog.Warn("failed to answer callback", "error", err.Error())
	}
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	chatID := q.Message.Chat.ID
	userID := strconv.FormatInt(q.From.ID, 10)

	kind, signal, err := memory.ParseFeedbackPayload(q.Data)
	if err != nil {
		slog.Warn("malformed feedback payload", "user_id", userID, "data", q.Data)
		b.send(chatID, feedbackMalformed, nil)
		return
	}
	if err := b.memory.RecordFeedback(ctx, userID, kind, signal); err != nil {
		slog.Error("failed to record feedback", "user_id", userID, "error", err.Error())
		b.send(chatID, commandFailed, nil)
		return
	}

	strip := tgbotapi.NewEditMessageReplyMarkup(chatID, q.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(strip); err != nil {
		slog.Warn("failed to remove feedback buttons", "user_id", userID, "error", err.Error())
	}
	b.send(chatID, feedbackRecorded, nil)
}

func (b *Bot) send(chatID int64, text string, markup any) {
	chunks := splitMessage(text, maxMessageLen)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if markup != nil && i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			slog.Error("failed to send telegram message", "chat_id", chatID, "error", err.Error())
			return
		}
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		// retry as plain text
		msg.ParseMode = ""
		if _, err := b.api.Send(msg); err != nil {
			slog.Error("failed to send telegram message", "chat_id", chatID, "error", err.Error())
		}
	}
}

func feedbackKeyboard(kind string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👍", kind+":like"),
		tgbotapi.NewInlineKeyboardButtonData("👎", kind+":dislike"),
	))
}

// Telegram rejects messages over 4096 characters.
const maxMessageLen = 4000

// splitMessage cuts text into chunks of at most limit runes, preferring newlines.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
