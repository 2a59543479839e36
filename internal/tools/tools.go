package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/slackfeed"
	"github.com/xaenox/daily-summarizer/internal/tags"
	"github.com/xaenox/daily-summarizer/internal/window"
	"go.uber.org/zap"
)

const (
	GetChannels      = "get_channels"
	GetMessages      = "get_messages"
	GetThread        = "get_thread"
	GetConversations = "get_conversations"
	SendMessage      = "send_message"
	GetExistingTags  = "get_existing_tags"
	CreateNewTags    = "create_new_tags"
)

// GetChannelsParams for the get_channels tool.
type GetChannelsParams struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Slack member id whose channels are listed. Default: the configured user"`
}

// GetMessagesParams for the get_messages tool.
type GetMessagesParams struct {
	ChannelID string `json:"channel_id" jsonschema:"required,description=Channel id (Cxxxxxxxxxx or Dxxxxxxxxxx)"`
	Day       string `json:"day" jsonschema:"required,description=Day in YYYY-MM-DD format"`
}

// GetThreadParams for the get_thread tool.
type GetThreadParams struct {
	ChannelID string `json:"channel_id" jsonschema:"required,description=Channel id the thread lives in"`
	ThreadTS  string `json:"thread_ts" jsonschema:"required,description=Timestamp of the thread's parent message"`
	Day       string `json:"day" jsonschema:"required,description=Day in YYYY-MM-DD format; replies outside it are dropped"`
}

// GetConversationsParams for the get_conversations tool.
type GetConversationsParams struct {
	Day    string `json:"day" jsonschema:"required,description=Day in YYYY-MM-DD format"`
	UserID string `json:"user_id,omitempty" jsonschema:"description=Slack member id to search conversations for. Default: the configured user"`
}

// SendMessageParams for the send_message tool.
type SendMessageParams struct {
	Message string `json:"message" jsonschema:"required,description=The message to be sent"`
	Channel string `json:"channel" jsonschema:"required,description=The channel, private group or IM channel to send the message to"`
}

// GetExistingTagsParams for the get_existing_tags tool.
type GetExistingTagsParams struct{}

// CreateNewTagsParams for the create_new_tags tool.
type CreateNewTagsParams struct {
	Tags []models.TagCandidate `json:"tags" jsonschema:"required,description=Tags to create; type is project or person"`
}

// Spec describes one tool for an orchestrator.
type Spec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

type Assembler interface {
	Assemble(ctx context.Context, userID string, w models.TimeWindow) (*slackfeed.Assembly, error)
}

type MessageSender interface {
	Send(ctx context.Context, channel, text string) (string, error)
}

type TagLister interface {
	GetAll(ctx context.Context) ([]models.Tag, error)
}

type TagCreator interface {
	Create(ctx context.Context, candidates []models.TagCandidate) ([]models.Tag, error)
}

type Deps struct {
	Source    slackfeed.Source
	Assembler Assembler
	Sender    MessageSender
	Tags      TagLister
	Creator   TagCreator
	Location  *time.Location
	// UserID is used when a request does not name a user.
	UserID string
}

// Dispatcher executes the closed set of tools.
type Dispatcher struct {
	deps   Deps
	specs  []Spec
	logger *zap.Logger
}

func NewDispatcher(deps Deps, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		deps:   deps,
		logger: logger,
	}

	d.specs = []Spec{
		{
			Name:        GetChannels,
			Description: "List the channels, DMs and group DMs the user is a member of. Archived channels are skipped.",
			Parameters:  schemaFor(GetChannelsParams{}),
		},
		{
			Name:        GetMessages,
			Description: "Get every message posted in a channel on a given day.",
			Parameters:  schemaFor(GetMessagesParams{}),
		},
		{
			Name:        GetThread,
			Description: "Get the replies of a thread posted on a given day, without the parent message.",
			Parameters:  schemaFor(GetThreadParams{}),
		},
		{
			Name:        GetConversations,
			Description: "Get all conversations where the user participated or was mentioned on a day, with thread context and author names. Prefer this over get_messages.",
			Parameters:  schemaFor(GetConversationsParams{}),
		},
		{
			Name:        SendMessage,
			Description: "Send a message to a Slack channel. Send each message only once.",
			Parameters:  schemaFor(SendMessageParams{}),
		},
		{
			Name:        GetExistingTags,
			Description: "Get all existing tags. Use it to check previous tags before creating new ones.",
			Parameters:  schemaFor(GetExistingTagsParams{}),
		},
		{
			Name:        CreateNewTags,
			Description: "Create new tags. Only the first call of a run writes; later calls return the same tags.",
			Parameters:  schemaFor(CreateNewTagsParams{}),
		},
	}

	return d
}

func schemaFor(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// Specs returns the tool definitions.
func (d *Dispatcher) Specs() []Spec {
	return d.specs
}

// Dispatch runs a tool by name and returns its JSON output.
func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string) (string, error) {
	var (
		out any
		err error
	)
	switch name {
	case GetChannels:
		out, err = d.getChannels(ctx, arguments)
	case GetMessages:
		out, err = d.getMessages(ctx, arguments)
	case GetThread:
		out, err = d.getThread(ctx, arguments)
	case GetConversations:
		out, err = d.getConversations(ctx, arguments)
	case SendMessage:
		out, err = d.sendMessage(ctx, arguments)
	case GetExistingTags:
		out, err = d.getExistingTags(ctx)
	case CreateNewTags:
		out, err = d.createNewTags(ctx, arguments)
	default:
		return "", apperr.InvalidInput("unknown tool: %s", name)
	}
	if err != nil {
		d.logger.Warn("Tool failed", zap.String("tool", name), zap.Error(err))
		return "", err
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", name, err)
	}
	return string(b), nil
}

// parseArguments unmarshals tool arguments into the target struct. Empty
// arguments are treated as an empty object.
func parseArguments[T any](arguments string) (T, error) {
	var result T
	if strings.TrimSpace(arguments) == "" {
		return result, nil
	}
	if err := json.Unmarshal([]byte(arguments), &result); err != nil {
		return result, apperr.InvalidInput("parse tool arguments: %v", err)
	}
	return result, nil
}

type field struct {
	name  string
	value string
}

// required reports the first empty field, in the order given.
func required(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.InvalidInput("%s is required", f.name)
		}
	}
	return nil
}

func (d *Dispatcher) userOr(id string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	if d.deps.UserID == "" {
		return "", apperr.InvalidInput("user_id is required")
	}
	return d.deps.UserID, nil
}

func (d *Dispatcher) getChannels(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[GetChannelsParams](arguments)
	if err != nil {
		return nil, err
	}
	userID, err := d.userOr(params.UserID)
	if err != nil {
		return nil, err
	}
	channels, err := d.deps.Source.Channels(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"channels": channels}, nil
}

func (d *Dispatcher) getMessages(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[GetMessagesParams](arguments)
	if err != nil {
		return nil, err
	}
	if err := required(field{"channel_id", params.ChannelID}, field{"day", params.Day}); err != nil {
		return nil, err
	}
	w, err := window.Resolve(params.Day, d.deps.Location)
	if err != nil {
		return nil, err
	}

	messages, err := d.deps.Source.Messages(ctx, params.ChannelID, w)
	result := map[string]any{"messages": messages}
	if err != nil {
		if !apperr.IsPartial(err) {
			return nil, err
		}
		result["warning"] = err.Error()
	}
	return result, nil
}

func (d *Dispatcher) getThread(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[GetThreadParams](arguments)
	if err != nil {
		return nil, err
	}
	if err := required(field{"channel_id", params.ChannelID}, field{"thread_ts", params.ThreadTS}, field{"day", params.Day}); err != nil {
		return nil, err
	}
	w, err := window.Resolve(params.Day, d.deps.Location)
	if err != nil {
		return nil, err
	}
	return map[string]any{"replies": d.deps.Source.Replies(ctx, params.ChannelID, params.ThreadTS, w)}, nil
}

func (d *Dispatcher) getConversations(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[GetConversationsParams](arguments)
	if err != nil {
		return nil, err
	}
	if err := required(field{"day", params.Day}); err != nil {
		return nil, err
	}
	userID, err := d.userOr(params.UserID)
	if err != nil {
		return nil, err
	}
	w, err := window.Resolve(params.Day, d.deps.Location)
	if err != nil {
		return nil, err
	}

	assembly, err := d.deps.Assembler.Assemble(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	warnings := make([]string, 0, len(assembly.Warnings))
	for _, warn := range assembly.Warnings {
		warnings = append(warnings, warn.Error())
	}
	return map[string]any{
		"conversations": assembly.Conversations,
		"warnings":      warnings,
	}, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[SendMessageParams](arguments)
	if err != nil {
		return nil, err
	}
	if err := required(field{"message", params.Message}, field{"channel", params.Channel}); err != nil {
		return nil, err
	}
	ts, err := d.deps.Sender.Send(ctx, params.Channel, params.Message)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message_was_sent": true,
		"channel":          params.Channel,
		"message_text":     params.Message,
		"timestamp":        ts,
	}, nil
}

func (d *Dispatcher) getExistingTags(ctx context.Context) (any, error) {
	existing, err := d.deps.Tags.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tags": existing}, nil
}

func (d *Dispatcher) createNewTags(ctx context.Context, arguments string) (any, error) {
	params, err := parseArguments[CreateNewTagsParams](arguments)
	if err != nil {
		return nil, err
	}
	for i, t := range params.Tags {
		if strings.TrimSpace(t.Name) == "" {
			return nil, apperr.InvalidInput("tags[%d].name is required", i)
		}
		if !t.Type.Valid() {
			return nil, apperr.InvalidInput("tags[%d].type %q is not a known tag type", i, t.Type)
		}
	}
	created, err := d.deps.Creator.Create(ctx, tags.Merge(params.Tags))
	if err != nil {
		return nil, err
	}
	return map[string]any{"tags": created}, nil
}
