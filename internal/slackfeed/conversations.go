package slackfeed

import (
	"context"
	"fmt"

	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

const directMessageName = "direct-message"

// Source is implemented by *Client.
type Source interface {
	Channels(ctx context.Context, userID string) ([]models.Channel, error)
	Messages(ctx context.Context, channelID string, w models.TimeWindow) ([]models.Message, error)
	Replies(ctx context.Context, channelID, parentTS string, w models.TimeWindow) []models.Message
}

// Assembly is the result of one Assemble call. Warnings hold per-channel
// degradations; they never abort the assembly.
type Assembly struct {
	Conversations []models.ConversationRecord
	Warnings      []error
}

type Assembler struct {
	source     Source
	identities *IdentityCache
	logger     *zap.Logger
}

func NewAssembler(source Source, identities *IdentityCache, logger *zap.Logger) *Assembler {
	return &Assembler{
		source:     source,
		identities: identities,
		logger:     logger,
	}
}

// Assemble collects the conversations of userID inside w. Only channels with
// at least one relevant message appear in the result, in enumeration order.
func (a *Assembler) Assemble(ctx context.Context, userID string, w models.TimeWindow) (*Assembly, error) {
	channels, err := a.source.Channels(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Assembly{Conversations: []models.ConversationRecord{}}

	// Unknown ids degrade to the sentinel identity when the member list is unavailable.
	if err := a.identities.Load(ctx); err != nil {
		out.Warnings = append(out.Warnings, &apperr.PartialDataWarning{Scope: "users", ID: userID, Err: err})
	}

	for _, ch := range channels {
		record, warn := a.assembleChannel(ctx, ch, userID, w)
		if warn != nil {
			out.Warnings = append(out.Warnings, warn)
		}
		if record != nil {
			out.Conversations = append(out.Conversations, *record)
		}
	}

	a.logger.Info("Assembled Slack conversations",
		zap.String("user_id", userID),
		zap.Int("channels", len(channels)),
		zap.Int("conversations", len(out.Conversations)),
		zap.Int("warnings", len(out.Warnings)))

	return out, nil
}

func (a *Assembler) assembleChannel(ctx context.Context, ch models.Channel, userID string, w models.TimeWindow) (record *models.ConversationRecord, warn error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Channel assembly panicked",
				zap.Any("panic", r),
				zap.String("channel_id", ch.ID))
			record = nil
			warn = &apperr.PartialDataWarning{Scope: "channel", ID: ch.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	messages, err := a.source.Messages(ctx, ch.ID, w)
	if err != nil {
		a.logger.Warn("Channel fetch degraded",
			zap.Error(err),
			zap.String("channel_id", ch.ID),
			zap.Int("messages", len(messages)))
		warn = err
	}

	relevant := FilterRelevant(messages, userID)
	if len(relevant) == 0 {
		return nil, warn
	}

	enriched := make([]models.EnrichedMessage, 0, len(relevant))
	for _, m := range relevant {
		em := a.identities.Enrich(m)
		if m.InThread() {
			replies := a.source.Replies(ctx, ch.ID, m.ThreadTimestamp, w)
			em.ThreadMessages = make([]models.EnrichedMessage, 0, len(replies))
			for _, r := range replies {
				em.ThreadMessages = append(em.ThreadMessages, a.identities.Enrich(r))
			}
		}
		enriched = append(enriched, em)
	}

	name := ch.Name
	if ch.IsDirect() {
		name = directMessageName
	}

	return &models.ConversationRecord{
		ChannelID:   ch.ID,
		ChannelName: name,
		Messages:    enriched,
	}, warn
}
