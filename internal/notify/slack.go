package notify

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"go.uber.org/zap"
)

const DefaultSlackChannel = "#daily-bot"

// SlackPoster is the subset of *slack.Client used to post messages.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type Slack struct {
	api     SlackPoster
	channel string
	logger  *zap.Logger
}

func NewSlack(api SlackPoster, channel string, logger *zap.Logger) *Slack {
	if channel == "" {
		channel = DefaultSlackChannel
	}
	return &Slack{
		api:     api,
		channel: channel,
		logger:  logger,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, text string) bool {
	_, err := s.Send(ctx, s.channel, text)
	ok := err == nil
	record(s.Name(), ok)
	return ok
}

// Send posts text to channel and returns the message timestamp.
func (s *Slack) Send(ctx context.Context, channel, text string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", apperr.InvalidInput("channel is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.InvalidInput("text is required")
	}

	_, ts, err := s.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		s.logger.Error("Error sending message to Slack",
			zap.Error(err),
			zap.String("channel", channel))
		return "", apperr.Upstream("post slack message", err)
	}
	return ts, nil
}
