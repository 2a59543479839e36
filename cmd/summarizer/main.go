package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/daily-summarizer/internal/mcpserver"
	"github.com/xaenox/daily-summarizer/internal/server"
	"github.com/xaenox/daily-summarizer/pkg/config"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := newRootCmd(logger).ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "summarizer",
		Short:         "Summarize a day of Slack and Gmail activity",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	// load builds the application for a subcommand; the caller closes it.
	load := func(ctx context.Context) (*app, *config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("Failed to load config", zap.Error(err), zap.String("path", configPath))
			return nil, nil, err
		}
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize", zap.Error(err))
			return nil, nil, err
		}
		return a, cfg, nil
	}

	root.AddCommand(
		newRunCmd(load, logger),
		newServeCmd(load, logger),
		newMCPCmd(load, logger),
	)
	return root
}

type loader func(ctx context.Context) (*app, *config.Config, error)

func newRunCmd(load loader, logger *zap.Logger) *cobra.Command {
	var day, event string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily workflow once and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, _, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			payload := []byte(event)
			if event == "" && day != "" {
				payload, _ = json.Marshal(map[string]string{"day": day})
			}

			resp := a.runner.Handle(ctx, payload)
			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			if resp.StatusCode != 200 {
				logger.Error("Daily run failed", zap.Int("status", resp.StatusCode))
				return fmt.Errorf("run failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to summarize (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&event, "event", "", "raw trigger payload, overrides --day")
	return cmd
}

func newServeCmd(load loader, logger *zap.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger, summaries and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cfg, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = cfg.Server.Address
			}

			handler := server.NewSummaryHandler(a.runner, a.store, logger)
			return server.Serve(ctx, addr, server.NewRouter(handler, logger), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to server.address")
	return cmd
}

func newMCPCmd(load loader, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the Slack and tag tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := mcpserver.New(a.dispatcher, version, logger)
			if err != nil {
				return err
			}
			return s.ServeStdio()
		},
	}
}
