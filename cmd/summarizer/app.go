package main

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/daily-summarizer/internal/classifier"
	"github.com/xaenox/daily-summarizer/internal/gmail"
	"github.com/xaenox/daily-summarizer/internal/notify"
	"github.com/xaenox/daily-summarizer/internal/search"
	"github.com/xaenox/daily-summarizer/internal/slackfeed"
	"github.com/xaenox/daily-summarizer/internal/storage"
	"github.com/xaenox/daily-summarizer/internal/summarizer"
	"github.com/xaenox/daily-summarizer/internal/tags"
	"github.com/xaenox/daily-summarizer/internal/tools"
	"github.com/xaenox/daily-summarizer/internal/window"
	"github.com/xaenox/daily-summarizer/internal/workflow"
	"github.com/xaenox/daily-summarizer/pkg/config"
	"go.uber.org/zap"
)

// app holds everything built from one configuration.
type app struct {
	store      storage.Storage
	runner     *workflow.Runner
	dispatcher *tools.Dispatcher
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := window.LoadLocation(cfg.Window.Timezone)
	if err != nil {
		return nil, err
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(ctx, dbConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize storage: %w", err)
		}
	}

	// Slack
	slackAPI := slackfeed.NewAPI(cfg.Slack.UserToken)
	source := slackfeed.NewClient(slackAPI, cfg.Slack.PageSize, logger)
	identities := slackfeed.NewIdentityCache(slackAPI, logger)
	assembler := slackfeed.NewAssembler(source, identities, logger)

	// LLM
	llm := openai.NewClient(cfg.OpenAI.APIKey)
	sum := summarizer.New(llm, summarizer.Config{
		Model:           cfg.OpenAI.Model,
		MaxTokens:       cfg.OpenAI.MaxTokens,
		Temperature:     cfg.OpenAI.Temperature,
		Language:        cfg.OpenAI.Language,
		UserDisplayName: cfg.Slack.DisplayName,
		UserID:          cfg.Slack.UserID,
	}, logger)
	clf := classifier.NewGPTClassifier(
		llm,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.Classifier.MaxTags,
		cfg.OpenAI.Language,
		logger,
	)

	// Tags
	creator := tags.NewCreator(store, logger)
	reconciler := tags.NewReconciler(store, creator, logger)

	// Notifications
	slackNotifier := notify.NewSlack(slackAPI, cfg.Slack.NotifyChannel, logger)
	notifiers := notify.Multi{slackNotifier}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		bot, err := notify.NewTelegramAPI(cfg.Telegram.Token)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("initialize telegram: %w", err)
		}
		notifiers = append(notifiers, notify.NewTelegram(bot, cfg.Telegram.ChatID, logger))
	}

	deps := workflow.Deps{
		Conversations: assembler,
		Summarizer:    sum,
		Extractor:     clf,
		Reconciler:    reconciler,
		TagCreator:    creator,
		Summaries:     store,
		Notifier:      notifiers,
	}

	if cfg.Gmail.Enabled {
		svc, err := gmail.NewService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.DelegatedUser)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("initialize gmail: %w", err)
		}
		deps.Emails = gmail.NewFetcher(svc, "me", logger)
	}

	if cfg.Search.Enabled {
		index, err := search.NewStore(cfg.Search.Scheme, cfg.Search.Host, llm, cfg.OpenAI.EmbeddingModel, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("initialize search: %w", err)
		}
		if err := index.Bootstrap(ctx); err != nil {
			logger.Warn("Search index unavailable, summaries will not be indexed", zap.Error(err))
		} else {
			deps.Indexer = index
		}
	}

	runner := workflow.NewRunner(deps, cfg.Slack.UserID, loc, workflow.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}, logger)

	dispatcher := tools.NewDispatcher(tools.Deps{
		Source:    source,
		Assembler: assembler,
		Sender:    slackNotifier,
		Tags:      store,
		Creator:   creator,
		Location:  loc,
		UserID:    cfg.Slack.UserID,
	}, logger)

	return &app{store: store, runner: runner, dispatcher: dispatcher}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
