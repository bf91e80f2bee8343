// Package flow contains the conversation pipeline: mode classification,
// prompt composition, the tool registry, and the orchestrator that runs a
// turn end to end.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/genai"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/memory"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
)

// sessionSummaryMaxLen bounds persisted turn summaries.
const sessionSummaryMaxLen = 240

// Orchestrator runs one conversation turn: context assembly, mode
// classification, two-phase model interaction, and output validation.
type Orchestrator struct {
	client     genai.ClientInterface
	builder    *memory.Builder
	registry   *ToolRegistry
	composer   *PromptComposer
	classifier *ModeClassifier
	store      store.MemoryStore
}

// NewOrchestrator wires the turn pipeline together.
func NewOrchestrator(client genai.ClientInterface, builder *memory.Builder, registry *ToolRegistry, composer *PromptComposer, classifier *ModeClassifier, st store.MemoryStore) *Orchestrator {
	return &Orchestrator{
		client:     client,
		builder:    builder,
		registry:   registry,
		composer:   composer,
		classifier: classifier,
		store:      st,
	}
}

// Respond processes one turn. Phase one offers tools with choice left to
// the model; if it calls none, its text is the reply. Otherwise every call
// is executed, the assistant message and per-call results are appended, and
// a second call without tools produces the final reply. The final output is
// validated before it is returned; a violation fails the whole turn.
func (o *Orchestrator) Respond(ctx context.Context, req models.RespondRequest) (*models.RespondResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid respond request: %w", err)
	}
	start := time.Now()
	turnID := uuid.NewString()
	slog.Debug("Orchestrator.Respond: turn started", "turnID", turnID, "userID", req.UserID)

	mc, cacheHit, err := o.builder.BuildContext(ctx, req.UserID, req.Context, false)
	if err != nil {
		return nil, fmt.Errorf("context build failed for turn %s: %w", turnID, err)
	}

	mode, confidence := o.resolveMode(ctx, req, mc)

	systemPrompt := o.composer.Compose(mode, memory.Format(mc))
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(req.UserInput),
	}

	toolResp, err := o.client.GenerateWithTools(ctx, messages, o.registry.Definitions())
	if err != nil {
		return nil, fmt.Errorf("model call failed for turn %s: %w", turnID, err)
	}

	var text string
	toolCallCount := len(toolResp.ToolCalls)
	if toolCallCount == 0 {
		text = toolResp.Content
	} else {
		text, err = o.handleToolCalls(ctx, req.UserID, toolResp, messages)
		if err != nil {
			return nil, fmt.Errorf("tool phase failed for turn %s: %w", turnID, err)
		}
	}

	resp := &models.RespondResponse{
		Text:     text,
		Insights: ExtractInsights(text),
		Metadata: models.TurnMetadata{
			TurnID:         turnID,
			Mode:           mode,
			ModeConfidence: confidence,
			CacheHit:       cacheHit,
			Model:          o.client.Model(),
			ToolCallCount:  toolCallCount,
			DurationMs:     time.Since(start).Milliseconds(),
		},
	}
	if err := resp.Validate(); err != nil {
		slog.Error("Orchestrator.Respond: final output invalid", "error", err, "turnID", turnID)
		return nil, fmt.Errorf("turn %s produced invalid output: %w", turnID, err)
	}

	o.persistSession(ctx, req, resp)
	slog.Debug("Orchestrator.Respond: turn completed", "turnID", turnID, "mode", mode, "tool_calls", toolCallCount, "duration_ms", resp.Metadata.DurationMs)
	return resp, nil
}

// resolveMode picks the conversation mode: explicit request override first,
// then the crisis flag, then the classifier, defaulting to free-form.
func (o *Orchestrator) resolveMode(ctx context.Context, req models.RespondRequest, mc *models.MemoryContext) (models.ConversationMode, float64) {
	if req.Mode != "" {
		return models.ConversationMode(req.Mode), 1.0
	}
	if req.Context.Crisis {
		return models.ModeCrisisSupport, 1.0
	}
	if verdict := o.classifier.Classify(ctx, req.UserInput, req.Context, mc.ProfileSummary); verdict != nil {
		return verdict.Mode, verdict.Confidence
	}
	return models.ModeFreeForm, 0
}

// handleToolCalls executes every requested tool in model-declared order,
// then asks the model for the final reply with the results in context and
// no tools offered.
func (o *Orchestrator) handleToolCalls(ctx context.Context, userID string, toolResp *genai.ToolCallResponse, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, tc := range toolResp.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		})
	}

	// The assistant message carrying the tool_calls must precede the tool
	// result messages that reference its call ids.
	assistantMsg := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(toolResp.Content),
		},
		ToolCalls: toolCalls,
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg})

	for _, tc := range toolResp.ToolCalls {
		args := normalizeUserID(tc.ID, tc.Function.Name, string(tc.Function.Arguments), userID)
		result, err := o.registry.Dispatch(ctx, tc.Function.Name, userID, []byte(args))
		if err != nil {
			slog.Error("Orchestrator.handleToolCalls: tool failed", "tool", tc.Function.Name, "id", tc.ID, "error", err, "userID", userID)
			result = fmt.Sprintf("Tool %s failed: %s", tc.Function.Name, err.Error())
		}
		messages = append(messages, openai.ToolMessage(result, tc.ID))
	}

	final, err := o.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("follow-up completion failed: %w", err)
	}
	return final, nil
}

// persistSession records the completed turn so future context builds see
// it. A write failure degrades the history, not the turn.
func (o *Orchestrator) persistSession(ctx context.Context, req models.RespondRequest, resp *models.RespondResponse) {
	summary := fmt.Sprintf("User: %s | Aluuna: %s", truncate(req.UserInput, sessionSummaryMaxLen), truncate(resp.Text, sessionSummaryMaxLen))
	err := o.store.AddSessionSummary(ctx, models.SessionSummary{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Summary:   summary,
		Mode:      resp.Metadata.Mode,
		ToolCalls: resp.Metadata.ToolCallCount,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("Orchestrator.persistSession: session write failed", "error", err, "userID", req.UserID)
		return
	}
	o.builder.Invalidate(ctx, req.UserID)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// RespondStreaming processes one turn over a streaming completion,
// forwarding assistant text deltas to onDelta as they arrive. Tool calls
// accumulated during the stream are executed once the stream ends, and the
// final reply (when tools ran) is produced by a second streaming call
// without tools.
func (o *Orchestrator) RespondStreaming(ctx context.Context, req models.RespondRequest, onDelta func(string)) (*models.RespondResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid respond request: %w", err)
	}
	start := time.Now()
	turnID := uuid.NewString()
	slog.Debug("Orchestrator.RespondStreaming: turn started", "turnID", turnID, "userID", req.UserID)

	mc, cacheHit, err := o.builder.BuildContext(ctx, req.UserID, req.Context, false)
	if err != nil {
		return nil, fmt.Errorf("context build failed for turn %s: %w", turnID, err)
	}
	mode, confidence := o.resolveMode(ctx, req, mc)

	systemPrompt := o.composer.Compose(mode, memory.Format(mc))
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(req.UserInput),
	}

	executor := NewRealtimeToolExecutor(o.registry)
	handler := &forwardingHandler{executor: executor, onDelta: onDelta}
	if err := o.client.GenerateStreamingWithTools(ctx, messages, o.registry.Definitions(), handler); err != nil {
		return nil, fmt.Errorf("streaming call failed for turn %s: %w", turnID, err)
	}

	text := executor.Content()
	results := executor.ExecuteReady(ctx, req.UserID)
	if len(results) > 0 {
		text, err = o.streamFollowUp(ctx, executor, messages, onDelta)
		if err != nil {
			return nil, fmt.Errorf("tool phase failed for turn %s: %w", turnID, err)
		}
	}

	resp := &models.RespondResponse{
		Text:     text,
		Insights: ExtractInsights(text),
		Metadata: models.TurnMetadata{
			TurnID:         turnID,
			Mode:           mode,
			ModeConfidence: confidence,
			CacheHit:       cacheHit,
			Model:          o.client.Model(),
			ToolCallCount:  len(results),
			DurationMs:     time.Since(start).Milliseconds(),
		},
	}
	if err := resp.Validate(); err != nil {
		slog.Error("Orchestrator.RespondStreaming: final output invalid", "error", err, "turnID", turnID)
		return nil, fmt.Errorf("turn %s produced invalid output: %w", turnID, err)
	}
	o.persistSession(ctx, req, resp)
	return resp, nil
}

// streamFollowUp streams the post-tool reply with no tools offered.
func (o *Orchestrator) streamFollowUp(ctx context.Context, executor *RealtimeToolExecutor, messages []openai.ChatCompletionMessageParamUnion, onDelta func(string)) (string, error) {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, tc := range executor.Calls() {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		})
	}
	assistantMsg := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(executor.Content()),
		},
		ToolCalls: toolCalls,
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg})

	for _, record := range executor.Results() {
		result := record.Result
		if !record.Success {
			result = fmt.Sprintf("Tool %s failed: %s", record.ToolName, record.Error)
		}
		messages = append(messages, openai.ToolMessage(result, record.CallID))
	}

	follow := &contentCollector{onDelta: onDelta}
	if err := o.client.GenerateStreamingWithTools(ctx, messages, nil, follow); err != nil {
		return "", fmt.Errorf("follow-up stream failed: %w", err)
	}
	return follow.text.String(), nil
}

// forwardingHandler feeds a stream into the executor while mirroring text
// deltas to the caller.
type forwardingHandler struct {
	executor *RealtimeToolExecutor
	onDelta  func(string)
}

func (h *forwardingHandler) OnContentDelta(delta string) {
	h.executor.OnContentDelta(delta)
	if h.onDelta != nil {
		h.onDelta(delta)
	}
}

func (h *forwardingHandler) OnToolCallDelta(index int64, id, name, argsFragment string) {
	h.executor.OnToolCallDelta(index, id, name, argsFragment)
}

// contentCollector accumulates a text-only stream.
type contentCollector struct {
	text    strings.Builder
	onDelta func(string)
}

func (c *contentCollector) OnContentDelta(delta string) {
	c.text.WriteString(delta)
	if c.onDelta != nil {
		c.onDelta(delta)
	}
}

func (c *contentCollector) OnToolCallDelta(index int64, id, name, argsFragment string) {}
