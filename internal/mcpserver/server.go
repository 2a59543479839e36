package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/tools"
	"go.uber.org/zap"
)

const serverName = "Daily Summarizer"

// Dispatcher is implemented by *tools.Dispatcher.
type Dispatcher interface {
	Specs() []tools.Spec
	Dispatch(ctx context.Context, name, arguments string) (string, error)
}

type MCPServer struct {
	server *server.MCPServer
	tools  []string
	logger *zap.Logger
}

// New registers every tool of the dispatcher with its reflected input schema.
func New(dispatcher Dispatcher, version string, logger *zap.Logger) (*MCPServer, error) {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(buildLoggerMiddleware(logger)),
	)

	m := &MCPServer{server: s, logger: logger}
	for _, spec := range dispatcher.Specs() {
		schema, err := json.Marshal(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", spec.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema), handlerFor(dispatcher, spec.Name))
		m.tools = append(m.tools, spec.Name)
	}
	return m, nil
}

// Tools returns the registered tool names.
func (m *MCPServer) Tools() []string {
	return m.tools
}

func (m *MCPServer) ServeStdio() error {
	m.logger.Info("Starting STDIO server", zap.Strings("tools", m.tools))
	err := server.ServeStdio(m.server)
	if err != nil {
		m.logger.Error("STDIO server error", zap.Error(err))
	}
	return err
}

// handlerFor adapts a dispatcher tool. Tool failures are reported to the
// client as error results; only internal failures surface as Go errors.
func handlerFor(dispatcher Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", name, err)
		}

		out, err := dispatcher.Dispatch(ctx, name, string(args))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperr.Kind(err), err)), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func buildLoggerMiddleware(logger *zap.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			logger.Info("Request received",
				zap.String("tool", req.Params.Name),
			)

			startTime := time.Now()

			res, err := next(ctx, req)

			logger.Info("Request finished",
				zap.String("tool", req.Params.Name),
				zap.Duration("duration", time.Since(startTime)),
				zap.Bool("is_error", res != nil && res.IsError),
			)

			return res, err
		}
	}
}
