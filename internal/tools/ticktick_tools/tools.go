package ticktick_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kortlane/ticktick-mcp/internal/server"
	"github.com/kortlane/ticktick-mcp/internal/ticktick"
)

// errorEnvelope is the JSON payload carried by every failed tool call. Kind is
// the machine-readable discriminator; detail carries the remote error body
// when one was observed.
type errorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// RegisterTickTickTools registers all TickTick tools with the MCP server.
// Mutating tools are only registered when readOnly is false.
func RegisterTickTickTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerProjectTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register project tools: %w", err)
	}
	if err := registerTaskTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}
	if err := registerQueryTools(s, sc); err != nil {
		return fmt.Errorf("failed to register query tools: %w", err)
	}
	return nil
}

// errorResult wraps a gateway error in the JSON error envelope. Non-gateway
// errors are reported as upstream failures so transport internals never leak
// to the caller.
func errorResult(err error) *mcp.CallToolResult {
	env := errorEnvelope{
		Kind:    string(ticktick.KindOf(err)),
		Message: err.Error(),
	}
	var gerr *ticktick.Error
	if errors.As(err, &gerr) {
		env.Message = gerr.Message
		env.Detail = gerr.Detail
	}
	jsonBytes, _ := json.Marshal(env)
	return mcp.NewToolResultError(string(jsonBytes))
}

// argErrorResult reports a caller mistake caught before any remote call.
func argErrorResult(format string, args ...any) *mcp.CallToolResult {
	return errorResult(ticktick.NewError(ticktick.KindInvalidArguments, format, args...))
}

// jsonResult renders v as indented JSON in a success result.
func jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonBytes))
}

// requireClient returns the shared TickTick client, or an authentication error
// result when no credentials were configured at startup.
func requireClient(sc *server.ServerContext) (*ticktick.Client, *mcp.CallToolResult) {
	client := sc.Client()
	if client == nil {
		return nil, errorResult(ticktick.NewError(ticktick.KindAuthentication,
			"TickTick credentials are not configured; set TICKTICK_ACCESS_TOKEN and restart the server"))
	}
	return client, nil
}

// requireString extracts a required string argument.
func requireString(args map[string]interface{}, key string) (string, *mcp.CallToolResult) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", argErrorResult("%s is required", key)
	}
	return value, nil
}

// priorityFromArgs extracts an optional priority argument. JSON numbers arrive
// as float64; the value must be one of the four TickTick priority levels.
func priorityFromArgs(args map[string]interface{}, key string) (ticktick.Priority, bool, *mcp.CallToolResult) {
	raw, present := args[key]
	if !present {
		return ticktick.PriorityNone, false, nil
	}
	n, ok := raw.(float64)
	if !ok {
		return 0, false, argErrorResult("%s must be a number", key)
	}
	p := ticktick.Priority(int(n))
	if !ticktick.ValidPriority(p) {
		return 0, false, argErrorResult(
			"invalid %s %d: must be 0 (None), 1 (Low), 3 (Medium) or 5 (High)", key, int(n))
	}
	return p, true, nil
}

// fetchAllTasks loads the cross-project task set for the derived views.
func fetchAllTasks(ctx context.Context, sc *server.ServerContext) ([]ticktick.Task, *mcp.CallToolResult) {
	client, errResult := requireClient(sc)
	if errResult != nil {
		return nil, errResult
	}
	tasks, err := client.AllTasks(ctx)
	if err != nil {
		return nil, errorResult(err)
	}
	return tasks, nil
}
