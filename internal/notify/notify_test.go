package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

type fakePoster struct {
	channels []string
	err      error
}

func (f *fakePoster) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	if f.err != nil {
		return "", "", f.err
	}
	return channelID, "1704067300.000100", nil
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type staticNotifier struct {
	name  string
	ok    bool
	calls int
}

func (s *staticNotifier) Name() string { return s.name }

func (s *staticNotifier) Notify(context.Context, string) bool {
	s.calls++
	return s.ok
}

func TestSlackNotify(t *testing.T) {
	t.Run("DefaultChannel", func(t *testing.T) {
		poster := &fakePoster{}
		n := NewSlack(poster, "", zap.NewNop())

		assert.True(t, n.Notify(context.Background(), "done"))
		assert.Equal(t, []string{"#daily-bot"}, poster.channels)
	})

	t.Run("FailureIsSwallowed", func(t *testing.T) {
		poster := &fakePoster{err: errors.New("channel_not_found")}
		n := NewSlack(poster, "#ops", zap.NewNop())

		assert.False(t, n.Notify(context.Background(), "done"))
	})

	t.Run("SendValidates", func(t *testing.T) {
		n := NewSlack(&fakePoster{}, "", zap.NewNop())

		_, err := n.Send(context.Background(), "", "hi")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		_, err = n.Send(context.Background(), "#x", "  ")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		ts, err := n.Send(context.Background(), "#x", "hi")
		require.NoError(t, err)
		assert.Equal(t, "1704067300.000100", ts)
	})
}

func TestTelegramNotify(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 42, zap.NewNop())

	assert.True(t, n.Notify(context.Background(), "Shipped v1.2 (finally)!"))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Equal(t, "*Daily summary*\n\nShipped v1\\.2 \\(finally\\)\\!", msg.Text)

	failing := NewTelegram(&fakeSender{err: errors.New("bot was blocked")}, 42, zap.NewNop())
	assert.False(t, failing.Notify(context.Background(), "x"))
}

func TestTelegramSplitsLongMessages(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 1, zap.NewNop())

	line := strings.Repeat("a", 99) + "\n"
	assert.True(t, n.Notify(context.Background(), strings.Repeat(line, 80)))
	require.Len(t, sender.sent, 3)
	for _, m := range sender.sent {
		assert.LessOrEqual(t, len([]rune(m.Text)), 4096)
	}
}

func TestTelegramSplitsAfterEscaping(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 1, zap.NewNop())

	// Every character is special, so escaping doubles the length.
	assert.True(t, n.Notify(context.Background(), strings.Repeat("(.)!", 1000)))
	require.Len(t, sender.sent, 3)
	for _, m := range sender.sent {
		assert.LessOrEqual(t, len([]rune(m.Text)), 4096)
		assert.Equal(t, 0, trailingBackslashes([]rune(m.Text))%2, "chunk ends inside an escape")
	}

	var joined strings.Builder
	for i, m := range sender.sent {
		text := m.Text
		if i == 0 {
			text = strings.TrimPrefix(text, "*Daily summary*\n\n")
		}
		joined.WriteString(text)
	}
	assert.Equal(t, escapeMarkdown(strings.Repeat("(.)!", 1000)), joined.String())
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))
	assert.Equal(t, []string{"abc\n", "defgh"}, splitText("abc\ndefgh", 6))
	assert.Equal(t, []string{"abcdef", "ghij"}, splitText("abcdefghij", 6))
	assert.Equal(t, []string{`ab\.`, `\!cd`}, splitText(`ab\.\!cd`, 5))
	assert.Equal(t, []string{`a\\`, `\.b`}, splitText(`a\\\.b`, 4))
}

func TestMulti(t *testing.T) {
	a := &staticNotifier{name: "a", ok: false}
	b := &staticNotifier{name: "b", ok: true}
	m := Multi{a, b}

	assert.Equal(t, "a,b", m.Name())
	assert.True(t, m.Notify(context.Background(), "x"))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.False(t, Multi{a}.Notify(context.Background(), "x"))
	assert.False(t, Multi{}.Notify(context.Background(), "x"))
}

func TestFormatSummary(t *testing.T) {
	text := FormatSummary(&models.DailySummary{
		Day:        "2024-01-01",
		Summary:    "Reviewed a PR.",
		Highlights: []string{"PR review"},
		Tags:       []string{"Project X", "Alice"},
	})
	assert.Equal(t, "Daily summary for 2024-01-01\n\nReviewed a PR.\n\nHighlights:\n- PR review\n\nTags: #Project_X #Alice", text)

	empty := FormatSummary(&models.DailySummary{Day: "2024-01-02"})
	assert.Equal(t, "Daily summary for 2024-01-02\n\nNo activity found for this day.", empty)
}
