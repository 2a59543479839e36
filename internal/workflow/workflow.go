package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/notify"
	"github.com/xaenox/daily-summarizer/internal/slackfeed"
	"github.com/xaenox/daily-summarizer/internal/summarizer"
	"github.com/xaenox/daily-summarizer/internal/window"
	"go.uber.org/zap"
)

type ConversationAssembler interface {
	Assemble(ctx context.Context, userID string, w models.TimeWindow) (*slackfeed.Assembly, error)
}

type EmailSource interface {
	Emails(ctx context.Context, w models.TimeWindow) ([]models.Email, error)
}

type Summarizer interface {
	SummarizeSlack(ctx context.Context, day string, conversations []models.ConversationRecord) (*summarizer.SectionSummary, error)
	SummarizeGmail(ctx context.Context, day string, emails []models.Email) (*summarizer.SectionSummary, error)
	Combine(ctx context.Context, day string, slack, gmail *summarizer.SectionSummary) (*models.DailySummary, error)
}

type TagExtractor interface {
	ExtractTags(ctx context.Context, summary string) ([]models.TagCandidate, error)
}

type TagReconciler interface {
	Reconcile(ctx context.Context, candidates []models.TagCandidate) (*models.TagReconciliationResult, error)
}

// Resetter ends a tag-creation run.
type Resetter interface {
	Reset()
}

type Indexer interface {
	AddDocuments(ctx context.Context, docs []models.Document) ([]string, error)
}

type SummaryStore interface {
	SaveSummary(ctx context.Context, summary *models.DailySummary) error
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Deps wires the stages of a run. Emails, Indexer and Notifier are optional.
type Deps struct {
	Conversations ConversationAssembler
	Emails        EmailSource
	Summarizer    Summarizer
	Extractor     TagExtractor
	Reconciler    TagReconciler
	TagCreator    Resetter
	Indexer       Indexer
	Summaries     SummaryStore
	Notifier      notify.Notifier
}

// Result is the outcome of a successful run.
type Result struct {
	Day      string                          `json:"day"`
	Summary  *models.DailySummary            `json:"summary"`
	Tags     *models.TagReconciliationResult `json:"tags"`
	Warnings []string                        `json:"warnings"`
	Notified bool                            `json:"notified"`
	Attempts int                             `json:"attempts"`
}

// Runner executes daily runs one at a time.
type Runner struct {
	mu       sync.Mutex
	deps     Deps
	userID   string
	location *time.Location
	retry    RetryConfig
	logger   *zap.Logger
}

func NewRunner(deps Deps, userID string, location *time.Location, retry RetryConfig, logger *zap.Logger) *Runner {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &Runner{
		deps:     deps,
		userID:   userID,
		location: location,
		retry:    retry,
		logger:   logger,
	}
}

func (r *Runner) Location() *time.Location {
	return r.location
}

// Run executes the daily pipeline for day, retrying failed attempts with
// exponential backoff. Invalid input is never retried. Concurrent calls
// wait for the run in progress to finish.
func (r *Runner) Run(ctx context.Context, day string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp := backoff.NewExponentialBackOff()
	if r.retry.InitialInterval > 0 {
		exp.InitialInterval = r.retry.InitialInterval
	}
	if r.retry.MaxInterval > 0 {
		exp.MaxInterval = r.retry.MaxInterval
	}
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.retry.MaxAttempts-1)), ctx)

	attempts := 0
	var result *Result
	op := func() error {
		attempts++
		metrics.WorkflowAttempts.Inc()

		res, err := r.runOnce(ctx, day)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}
	notifyRetry := func(err error, wait time.Duration) {
		r.logger.Warn("Daily run failed, retrying",
			zap.String("day", day),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notifyRetry); err != nil {
		outcome := "failed"
		if errors.Is(err, apperr.ErrInvalidInput) {
			outcome = "invalid"
		}
		metrics.WorkflowRuns.WithLabelValues(outcome).Inc()
		r.logger.Error("Daily run failed",
			zap.String("day", day),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, err
	}

	result.Attempts = attempts
	metrics.WorkflowRuns.WithLabelValues("success").Inc()
	r.logger.Info("Daily run finished",
		zap.String("day", day),
		zap.Int("attempts", attempts),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("notified", result.Notified))
	return result, nil
}

func (r *Runner) runOnce(ctx context.Context, day string) (*Result, error) {
	w, err := window.Resolve(day, r.location)
	if err != nil {
		return nil, err
	}
	result := &Result{Day: day, Warnings: []string{}}

	assembly, err := r.deps.Conversations.Assemble(ctx, r.userID, w)
	if err != nil {
		return nil, err
	}
	for _, warn := range assembly.Warnings {
		result.Warnings = append(result.Warnings, warn.Error())
	}

	slackSection, err := r.deps.Summarizer.SummarizeSlack(ctx, day, assembly.Conversations)
	if err != nil {
		return nil, err
	}

	var gmailSection *summarizer.SectionSummary
	if r.deps.Emails != nil {
		gmailSection, err = r.gmail(ctx, day, w)
		if err != nil {
			// Gmail is an optional source; the day is still summarized without it.
			r.logger.Warn("Skipping Gmail", zap.String("day", day), zap.Error(err))
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	daily, err := r.deps.Summarizer.Combine(ctx, day, slackSection, gmailSection)
	if err != nil {
		return nil, err
	}

	reconciled, err := r.tags(ctx, daily.Summary)
	if err != nil {
		return nil, err
	}
	daily.Tags = tagNames(reconciled)
	result.Tags = reconciled

	if r.deps.Indexer != nil && daily.Summary != "" {
		if _, err := r.deps.Indexer.AddDocuments(ctx, []models.Document{{
			ID:       SummaryDocumentID(day),
			Text:     daily.Summary,
			Metadata: map[string]string{"day": day, "source": "summary", "kind": "daily"},
		}}); err != nil {
			r.logger.Warn("Failed to index summary", zap.String("day", day), zap.Error(err))
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	if err := r.deps.Summaries.SaveSummary(ctx, daily); err != nil {
		return nil, err
	}
	result.Summary = daily

	if r.deps.Notifier != nil {
		result.Notified = r.deps.Notifier.Notify(ctx, notify.FormatSummary(daily))
	}
	return result, nil
}

// SummaryDocumentID is the search document id of the summary for day.
// Re-indexing a day replaces its previous summary.
func SummaryDocumentID(day string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("daily-summary/"+day)).String()
}

func (r *Runner) gmail(ctx context.Context, day string, w models.TimeWindow) (*summarizer.SectionSummary, error) {
	emails, err := r.deps.Emails.Emails(ctx, w)
	if err != nil {
		return nil, err
	}
	return r.deps.Summarizer.SummarizeGmail(ctx, day, emails)
}

// tags extracts and reconciles tags, then closes the creation run so the
// next run starts with a fresh guard.
func (r *Runner) tags(ctx context.Context, summary string) (*models.TagReconciliationResult, error) {
	defer r.deps.TagCreator.Reset()

	candidates, err := r.deps.Extractor.ExtractTags(ctx, summary)
	if err != nil {
		return nil, err
	}
	return r.deps.Reconciler.Reconcile(ctx, candidates)
}

func tagNames(result *models.TagReconciliationResult) []string {
	names := make([]string, 0, len(result.ExistingTags)+len(result.NewlyCreatedTags))
	seen := make(map[string]struct{})
	for _, group := range [][]models.Tag{result.ExistingTags, result.NewlyCreatedTags} {
		for _, t := range group {
			if _, ok := seen[t.Key()]; ok {
				continue
			}
			seen[t.Key()] = struct{}{}
			names = append(names, t.Name)
		}
	}
	return names
}

// Response is what an invocation returns to its trigger.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Handle parses the trigger payload, runs the day and renders the outcome.
// Internal details beyond the error message never reach the caller.
func (r *Runner) Handle(ctx context.Context, event []byte) Response {
	day, err := ParseTrigger(event, r.location)
	if err != nil {
		return errorResponse(err)
	}

	result, err := r.Run(ctx, day)
	if err != nil {
		return errorResponse(err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: 200, Body: string(body)}
}

func errorResponse(err error) Response {
	body, _ := json.Marshal(errorBody{Error: apperr.Kind(err), Detail: err.Error()})
	return Response{StatusCode: apperr.HTTPStatus(err), Body: string(body)}
}
