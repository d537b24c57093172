package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kortlane/ticktick-mcp/internal/logging"
	"github.com/kortlane/ticktick-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with metrics and debug logging.
// It records the invocation counter and duration histogram for the tool and
// logs the outcome through the server's logger.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := logging.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = logging.StatusError
		}

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}

		sc.Logger().DebugContext(ctx, "tool invocation",
			logging.Tool(toolName),
			logging.Status(status),
			logging.Duration(duration),
		)

		return result, err
	}
}
