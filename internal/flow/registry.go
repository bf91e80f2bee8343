package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// ToolHandler executes one tool call for a user. The returned string is the
// tool result fed back to the model.
type ToolHandler func(ctx context.Context, userID string, args json.RawMessage) (string, error)

// ToolRegistry maps tool names to handlers and holds the OpenAI tool
// definitions. It is built once per process and read-only afterwards.
type ToolRegistry struct {
	definitions []openai.ChatCompletionToolParam
	handlers    map[string]ToolHandler
}

// NewToolRegistry builds the registry over the memory tool handlers.
func NewToolRegistry(tools *MemoryTools) *ToolRegistry {
	r := &ToolRegistry{handlers: make(map[string]ToolHandler)}
	r.register(saveGoalDefinition(), tools.executeSaveGoal)
	r.register(saveInsightDefinition(), tools.executeSaveInsight)
	r.register(saveCopingToolDefinition(), tools.executeSaveCopingTool)
	r.register(recordEmotionalTrendDefinition(), tools.executeRecordEmotionalTrend)
	r.register(saveMantraDefinition(), tools.executeSaveMantra)
	r.register(saveRelationshipDefinition(), tools.executeSaveRelationship)
	r.register(recordMilestoneDefinition(), tools.executeRecordMilestone)
	r.register(updateProfileSummaryDefinition(), tools.executeUpdateProfileSummary)
	slog.Debug("NewToolRegistry: registered tools", "count", len(r.handlers))
	return r
}

func (r *ToolRegistry) register(def openai.ChatCompletionToolParam, handler ToolHandler) {
	r.definitions = append(r.definitions, def)
	r.handlers[def.Function.Name] = handler
}

// Definitions returns the tool parameters passed on every model call.
func (r *ToolRegistry) Definitions() []openai.ChatCompletionToolParam {
	return r.definitions
}

// Has reports whether a tool name is registered.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Dispatch executes the named tool. Unknown tool names are an explicit
// error, not a silent no-op, so a drifting model surfaces immediately.
func (r *ToolRegistry) Dispatch(ctx context.Context, name, userID string, args json.RawMessage) (string, error) {
	handler, ok := r.handlers[name]
	if !ok {
		slog.Warn("ToolRegistry.Dispatch: unknown tool requested", "tool", name, "userID", userID)
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return handler(ctx, userID, args)
}
