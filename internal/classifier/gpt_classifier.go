package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

// ChatCompleter is the subset of *openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type GPTResponse struct {
	Tags []models.TagCandidate `json:"tags" jsonschema:"required"`
}

type GPTClassifier struct {
	client      ChatCompleter
	model       string
	maxTokens   int
	temperature float64
	maxTags     int
	language    string
	fallback    *SimpleClassifier
	logger      *zap.Logger
}

func NewGPTClassifier(client ChatCompleter, model string, maxTokens int, temperature float64, maxTags int, language string, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		maxTags:     maxTags,
		language:    language,
		fallback:    NewSimpleClassifier(maxTags),
		logger:      logger,
	}
}

const tagPrompt = `You are an expert assistant in semantic text analysis and metadata extraction.
Read the daily summary below and identify the projects and people it mentions, so the
summary can later be linked to other summaries mentioning the same entities.

For each entity:
- "name": the project name or the person's name, normalized.
- "type": "project" or "person".
- "related_projects": for a person, the projects they are involved in.
- "related_people": for a project, the people associated with it.

Rules:
- Rely only on the summary; do not invent entities.
- Return at most %d tags.
- If no projects or people are found, return an empty "tags" array.
- Keep names in the language they appear in; respond in %s.

Respond only with a JSON object matching this schema:
%s

Daily summary:
%s`

var responseSchema = func() string {
	r := &jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	b, err := json.Marshal(r.Reflect(&GPTResponse{}))
	if err != nil {
		panic(fmt.Sprintf("reflect tag schema: %v", err))
	}
	return string(b)
}()

// ExtractTags asks the model for project and person tags. Model failures and
// malformed output fall back to SimpleClassifier, so the error is always nil
// unless the context is done.
func (c *GPTClassifier) ExtractTags(ctx context.Context, summary string) ([]models.TagCandidate, error) {
	if strings.TrimSpace(summary) == "" {
		return []models.TagCandidate{}, nil
	}

	tags, err := c.extract(ctx, summary)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("Falling back to simple tag extraction", zap.Error(err))
		return c.fallback.Classify(summary), nil
	}
	return tags, nil
}

func (c *GPTClassifier) extract(ctx context.Context, summary string) ([]models.TagCandidate, error) {
	prompt := fmt.Sprintf(tagPrompt, c.maxTags, c.language, responseSchema, summary)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	var gptResponse GPTResponse
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &gptResponse); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return nil, fmt.Errorf("parse tags: %w", err)
	}

	tags := make([]models.TagCandidate, 0, len(gptResponse.Tags))
	for _, t := range gptResponse.Tags {
		t.Type = models.TagType(strings.ToLower(strings.TrimSpace(string(t.Type))))
		tags = append(tags, t)
	}

	// Ensure we don't exceed maxTags
	if c.maxTags > 0 && len(tags) > c.maxTags {
		tags = tags[:c.maxTags]
	}

	return tags, nil
}
