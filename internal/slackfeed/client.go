package slackfeed

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize matches the page size Slack recommends for history calls.
	DefaultPageSize = 500
	// MaxPageSize is the upper bound Slack accepts for conversations.* limits.
	MaxPageSize = 1000
)

// conversationTypes covers public, private, multi-person and direct conversations.
var conversationTypes = []string{"public_channel", "private_channel", "mpim", "im"}

// API is the subset of *slack.Client used by this package.
type API interface {
	GetConversationsForUserContext(ctx context.Context, params *slack.GetConversationsForUserParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
}

// Client reads channels and messages from Slack for a single user token.
type Client struct {
	api      API
	pageSize int
	logger   *zap.Logger
}

func NewClient(api API, pageSize int, logger *zap.Logger) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Client{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
	}
}

// NewAPI builds the Slack Web API client for a user token.
func NewAPI(token string) *slack.Client {
	return slack.New(token)
}

// Channels lists the non-archived conversations userID belongs to, following
// the cursor. Failures are returned as ErrUpstreamUnavailable and not retried here.
func (c *Client) Channels(ctx context.Context, userID string) ([]models.Channel, error) {
	var channels []models.Channel
	cursor := ""
	for {
		page, next, err := c.api.GetConversationsForUserContext(ctx, &slack.GetConversationsForUserParameters{
			UserID:          userID,
			Cursor:          cursor,
			Types:           conversationTypes,
			Limit:           c.pageSize,
			ExcludeArchived: true,
		})
		if err != nil {
			c.logger.Error("Failed to list conversations",
				zap.Error(err),
				zap.String("user_id", userID))
			return nil, apperr.Upstream("list conversations", err)
		}

		for _, ch := range page {
			if ch.IsArchived {
				continue
			}
			channels = append(channels, models.Channel{
				ID:          ch.ID,
				Name:        ch.Name,
				Created:     ch.Created.Time(),
				MemberCount: ch.NumMembers,
			})
		}

		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

// Messages returns every message of channelID inside w, page by page.
// If a page fails, the messages gathered so far are returned together with a
// *apperr.PartialDataWarning.
func (c *Client) Messages(ctx context.Context, channelID string, w models.TimeWindow) ([]models.Message, error) {
	var messages []models.Message
	cursor := ""
	for page := 1; ; page++ {
		resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     c.pageSize,
			Oldest:    w.Oldest(),
			Latest:    w.Latest(),
			Inclusive: true,
		})
		if err != nil {
			metrics.PartialData.WithLabelValues("channel").Inc()
			c.logger.Warn("Failed to get channel history page, returning partial result",
				zap.Error(err),
				zap.String("channel_id", channelID),
				zap.Int("page", page),
				zap.Int("messages_so_far", len(messages)))
			return messages, &apperr.PartialDataWarning{
				Scope: "channel",
				ID:    channelID,
				Err:   fmt.Errorf("history page %d: %w", page, err),
			}
		}

		for _, m := range resp.Messages {
			if w.Contains(m.Timestamp) {
				messages = append(messages, toMessage(m))
			}
		}

		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			return messages, nil
		}
	}
}

// Replies returns the replies of the thread rooted at parentTS that fall in w.
// The thread root itself is not included. On failure it logs and returns an
// empty slice.
func (c *Client) Replies(ctx context.Context, channelID, parentTS string, w models.TimeWindow) []models.Message {
	replies := []models.Message{}
	cursor := ""
	for {
		msgs, hasMore, next, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: parentTS,
			Cursor:    cursor,
			Limit:     c.pageSize,
			Oldest:    w.Oldest(),
			Latest:    w.Latest(),
			Inclusive: true,
		})
		if err != nil {
			metrics.PartialData.WithLabelValues("thread").Inc()
			c.logger.Warn("Failed to get thread replies",
				zap.Error(err),
				zap.String("channel_id", channelID),
				zap.String("thread_ts", parentTS))
			return []models.Message{}
		}

		for _, m := range msgs {
			if m.Timestamp == parentTS || !w.Contains(m.Timestamp) {
				continue
			}
			replies = append(replies, toMessage(m))
		}

		if !hasMore || next == "" {
			return replies
		}
		cursor = next
	}
}

func toMessage(m slack.Message) models.Message {
	return models.Message{
		Text:            m.Text,
		AuthorID:        m.User,
		Timestamp:       m.Timestamp,
		ThreadTimestamp: m.ThreadTimestamp,
	}
}
