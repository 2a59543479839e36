package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxTelegramChunk stays under the 4096 character message limit after escaping overhead.
const maxTelegramChunk = 3500

// TelegramSender is the subset of *tgbotapi.BotAPI used to send messages.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

func NewTelegramAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

type Telegram struct {
	api    TelegramSender
	chatID int64
	logger *zap.Logger
}

func NewTelegram(api TelegramSender, chatID int64, logger *zap.Logger) *Telegram {
	return &Telegram{
		api:    api,
		chatID: chatID,
		logger: logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Notify sends text as MarkdownV2, split into several messages when long.
// The text is escaped before splitting so every chunk fits the limit as sent.
func (t *Telegram) Notify(_ context.Context, text string) bool {
	for i, body := range splitText(escapeMarkdown(text), maxTelegramChunk) {
		if i == 0 {
			body = "*Daily summary*\n\n" + body
		}
		msg := tgbotapi.NewMessage(t.chatID, body)
		msg.ParseMode = tgbotapi.ModeMarkdownV2

		if _, err := t.api.Send(msg); err != nil {
			t.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", t.chatID),
				zap.Int("chunk", i))
			record(t.Name(), false)
			return false
		}
	}
	record(t.Name(), true)
	return true
}

// escapeMarkdown escapes the MarkdownV2 special characters
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// splitText cuts text into chunks of at most size runes, preferring line
// breaks. A backslash escape is never separated from the character it escapes.
func splitText(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for len(runes) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if trailingBackslashes(runes[:cut])%2 == 1 {
			cut--
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func trailingBackslashes(runes []rune) int {
	n := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		n++
	}
	return n
}
