package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"soltron-bot/pkg/soltron"
)

// TelegramProvider mirrors posts into a Telegram channel. Telegram has no separate
// upload step, so uploaded bytes are held until Publish sends them as an animation.
type TelegramProvider struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string // Public username, for post links
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string][]byte
}

// NewTelegramProvider creates a Telegram provider posting to chatID.
func NewTelegramProvider(bot *tgbotapi.BotAPI, chatID int64, channel string, logger *slog.Logger) *TelegramProvider {
	return &TelegramProvider{
		bot:     bot,
		chatID:  chatID,
		channel: channel,
		logger:  logger,
		pending: make(map[string][]byte),
	}
}

// Name returns "telegram".
func (t *TelegramProvider) Name() string { return "telegram" }

// UploadMedia holds data under a new media id.
func (t *TelegramProvider) UploadMedia(_ context.Context, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty media", soltron.ErrMediaUpload)
	}
	id := uuid.NewString()
	t.mu.Lock()
	t.pending[id] = data
	t.mu.Unlock()
	return id, nil
}

// Publish sends text, as an animation caption when a held media id is given.
func (t *TelegramProvider) Publish(_ context.Context, text string, mediaIDs []string) (soltron.PostHandle, error) {
	var msg tgbotapi.Chattable = tgbotapi.NewMessage(t.chatID, text)

	if len(mediaIDs) > 0 {
		t.mu.Lock()
		data, ok := t.pending[mediaIDs[0]]
		delete(t.pending, mediaIDs[0])
		t.mu.Unlock()
		if !ok {
			return soltron.PostHandle{}, fmt.Errorf("%w: unknown media id %s", soltron.ErrPublish, mediaIDs[0])
		}

		anim := tgbotapi.NewAnimation(t.chatID, tgbotapi.FileBytes{Name: "soltron.gif", Bytes: data})
		anim.Caption = text
		msg = anim
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		return soltron.PostHandle{}, fmt.Errorf("%w: telegram send: %w", soltron.ErrPublish, err)
	}

	id := strconv.Itoa(sent.MessageID)
	handle := soltron.PostHandle{ID: id}
	if t.channel != "" {
		handle.URL = fmt.Sprintf("https://t.me/%s/%s", t.channel, id)
	}
	t.logger.Info("Telegram post sent", "chat_id", t.chatID, "message_id", id, "media", len(mediaIDs) > 0)
	return handle, nil
}
