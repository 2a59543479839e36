package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/window"
	"go.uber.org/zap"
)

// ChatCompleter is the subset of *openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Language    string
	// Slack identity of the person whose day is summarized.
	UserDisplayName string
	UserID          string
}

// SectionSummary is the structured summary of one source for one day.
type SectionSummary struct {
	Day            string   `json:"day"`
	KeyPoints      []string `json:"key_points"`
	ImportantTasks []string `json:"important_tasks"`
	Summary        string   `json:"general_detailed_summary"`
}

// Empty reports whether the section carries no content.
func (s *SectionSummary) Empty() bool {
	return s == nil || (s.Summary == "" && len(s.KeyPoints) == 0 && len(s.ImportantTasks) == 0)
}

type combined struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

type Summarizer struct {
	client ChatCompleter
	config Config
	logger *zap.Logger
}

func New(client ChatCompleter, config Config, logger *zap.Logger) *Summarizer {
	if config.Language == "" {
		config.Language = "English"
	}
	return &Summarizer{
		client: client,
		config: config,
		logger: logger,
	}
}

// SummarizeSlack summarizes the relevant conversations of a day. No
// conversations yields an empty section without calling the model.
func (s *Summarizer) SummarizeSlack(ctx context.Context, day string, conversations []models.ConversationRecord) (*SectionSummary, error) {
	if len(conversations) == 0 {
		s.logger.Info("No Slack conversations to summarize", zap.String("day", day))
		return emptySection(day), nil
	}

	prev, next, err := window.Neighbours(day)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(conversations)
	if err != nil {
		return nil, fmt.Errorf("encode conversations: %w", err)
	}

	prompt := fmt.Sprintf(slackPrompt,
		s.config.UserDisplayName, s.config.UserID,
		day, prev, next,
		s.config.Language,
		payload)

	section := &SectionSummary{}
	if err := s.complete(ctx, "slack", prompt, section); err != nil {
		return nil, err
	}
	section.Day = day
	return section, nil
}

// SummarizeGmail summarizes the emails of a day.
func (s *Summarizer) SummarizeGmail(ctx context.Context, day string, emails []models.Email) (*SectionSummary, error) {
	if len(emails) == 0 {
		s.logger.Info("No emails to summarize", zap.String("day", day))
		return emptySection(day), nil
	}

	prev, next, err := window.Neighbours(day)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(emails)
	if err != nil {
		return nil, fmt.Errorf("encode emails: %w", err)
	}

	prompt := fmt.Sprintf(gmailPrompt, day, prev, next, s.config.Language, payload)

	section := &SectionSummary{}
	if err := s.complete(ctx, "gmail", prompt, section); err != nil {
		return nil, err
	}
	section.Day = day
	return section, nil
}

// Combine merges the per-source sections into the final daily summary.
// gmail is nil when Gmail is not configured.
func (s *Summarizer) Combine(ctx context.Context, day string, slack, gmail *SectionSummary) (*models.DailySummary, error) {
	summary := &models.DailySummary{
		Day:        day,
		Highlights: []string{},
		Tags:       []string{},
	}
	if !slack.Empty() {
		summary.SlackSummary = slack.Summary
	}
	if !gmail.Empty() {
		summary.GmailSummary = gmail.Summary
	}

	if slack.Empty() && gmail.Empty() {
		s.logger.Info("Nothing to combine", zap.String("day", day))
		return summary, nil
	}

	sections := map[string]*SectionSummary{}
	if !slack.Empty() {
		sections["slack"] = slack
	}
	if !gmail.Empty() {
		sections["gmail"] = gmail
	}
	payload, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}

	prompt := fmt.Sprintf(combinePrompt, day, s.config.Language, payload)

	var out combined
	if err := s.complete(ctx, "combine", prompt, &out); err != nil {
		return nil, err
	}
	summary.Summary = out.Summary
	if out.Highlights != nil {
		summary.Highlights = out.Highlights
	}
	return summary, nil
}

func (s *Summarizer) complete(ctx context.Context, stage, prompt string, out any) error {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   s.config.MaxTokens,
			Temperature: float32(s.config.Temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		s.logger.Error("Failed to get GPT response", zap.String("stage", stage), zap.Error(err))
		return apperr.Upstream("summarize "+stage, err)
	}
	if len(resp.Choices) == 0 {
		return apperr.Upstream("summarize "+stage, errors.New("no choices returned"))
	}

	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), out); err != nil {
		s.logger.Error("Failed to parse GPT response",
			zap.String("stage", stage),
			zap.Error(err),
			zap.String("response", response))
		return apperr.Upstream("summarize "+stage, fmt.Errorf("malformed response: %w", err))
	}

	s.logger.Info("Summarized",
		zap.String("stage", stage),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return nil
}

func emptySection(day string) *SectionSummary {
	return &SectionSummary{
		Day:            day,
		KeyPoints:      []string{},
		ImportantTasks: []string{},
	}
}
