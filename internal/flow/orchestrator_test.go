package flow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/contextcache"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/genai"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/memory"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
)

func newTestOrchestrator(client *mockGenAI) (*Orchestrator, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	builder := memory.NewBuilder(st, contextcache.NewMemoryCache())
	registry := NewToolRegistry(NewMemoryTools(st, builder))
	composer := NewPromptComposer("")
	classifier := NewModeClassifier(client)
	return NewOrchestrator(client, builder, registry, composer, classifier, st), st
}

func TestRespondWithoutToolCalls(t *testing.T) {
	client := &mockGenAI{
		structured: `{"mode":"free-form","confidence":0.8}`,
		toolResp:   &genai.ToolCallResponse{Content: "I hear you. I notice a pattern in how you describe mornings."},
	}
	o, st := newTestOrchestrator(client)

	resp, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "mornings are always the hardest",
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if resp.Text != "I hear you. I notice a pattern in how you describe mornings." {
		t.Errorf("unexpected text: %s", resp.Text)
	}
	// One phase only: no follow-up completion.
	if client.messageCallCount != 0 {
		t.Errorf("expected no second model call, got %d", client.messageCallCount)
	}
	if resp.Metadata.ToolCallCount != 0 {
		t.Errorf("expected 0 tool calls, got %d", resp.Metadata.ToolCallCount)
	}
	// Heuristic insight extraction fires on trigger words.
	if len(resp.Insights) != 1 || !strings.Contains(resp.Insights[0], "pattern") {
		t.Errorf("unexpected insights: %+v", resp.Insights)
	}
	if resp.Metadata.TurnID == "" || resp.Metadata.Mode != models.ModeFreeForm {
		t.Errorf("unexpected metadata: %+v", resp.Metadata)
	}

	// The turn is persisted as a session summary.
	sessions, _ := st.ListRecentSessions(context.Background(), "user-123456", 5)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 persisted session, got %d", len(sessions))
	}
	if !strings.Contains(sessions[0].Summary, "mornings are always the hardest") {
		t.Errorf("unexpected summary: %s", sessions[0].Summary)
	}
}

func TestRespondWithToolCallsRunsSecondPhase(t *testing.T) {
	client := &mockGenAI{
		structured: `{"mode":"free-form","confidence":0.5}`,
		toolResp: &genai.ToolCallResponse{
			Content: "",
			ToolCalls: []models.ToolCall{
				{
					ID:   "call_1",
					Type: "function",
					Function: models.FunctionCall{
						Name:      string(models.ToolSaveGoal),
						Arguments: json.RawMessage(`{"title":"walk daily","userId":"uuid"}`),
					},
				},
			},
		},
		finalText: "Saving that goal. Walking daily seems like a kind place to start.",
	}
	o, st := newTestOrchestrator(client)
	ctx := context.Background()

	resp, err := o.Respond(ctx, models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "I want to start walking every day",
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	// Tool executed against the effective user id despite the placeholder.
	goals, _ := st.ListGoals(ctx, "user-123456", 10)
	if len(goals) != 1 || goals[0].Title != "walk daily" {
		t.Fatalf("expected persisted goal, got %+v", goals)
	}

	// Second phase produced the reply.
	if client.messageCallCount != 1 {
		t.Errorf("expected exactly one follow-up call, got %d", client.messageCallCount)
	}
	if resp.Text != client.finalText {
		t.Errorf("unexpected text: %s", resp.Text)
	}
	if resp.Metadata.ToolCallCount != 1 {
		t.Errorf("expected 1 tool call in metadata, got %d", resp.Metadata.ToolCallCount)
	}

	// Follow-up messages: system, user, assistant-with-tool-calls, tool result.
	if len(client.lastMessages) != 4 {
		t.Fatalf("expected 4 messages in follow-up, got %d", len(client.lastMessages))
	}
	assistant := client.lastMessages[2].OfAssistant
	if assistant == nil || len(assistant.ToolCalls) != 1 {
		t.Error("expected assistant message carrying the tool calls")
	}
	toolMsg := client.lastMessages[3].OfTool
	if toolMsg == nil || toolMsg.ToolCallID != "call_1" {
		t.Error("expected tool result message referencing the call id")
	}
}

func TestRespondFailedToolStillReplies(t *testing.T) {
	client := &mockGenAI{
		structured: `{"mode":"free-form","confidence":0.5}`,
		toolResp: &genai.ToolCallResponse{
			ToolCalls: []models.ToolCall{
				{
					ID:   "call_1",
					Type: "function",
					Function: models.FunctionCall{
						Name:      "unregistered_tool",
						Arguments: json.RawMessage(`{}`),
					},
				},
			},
		},
		finalText: "Something went sideways on my end, but I'm still here with you.",
	}
	o, _ := newTestOrchestrator(client)

	resp, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "hello",
	})
	if err != nil {
		t.Fatalf("a failed tool must not fail the turn: %v", err)
	}
	if resp.Text != client.finalText {
		t.Errorf("unexpected text: %s", resp.Text)
	}
	// The failure is surfaced to the model as the tool result.
	toolMsg := client.lastMessages[3].OfTool
	if toolMsg == nil {
		t.Fatal("expected tool result message")
	}
}

func TestRespondModeOverride(t *testing.T) {
	client := &mockGenAI{
		toolResp: &genai.ToolCallResponse{Content: "Staying right here with you."},
	}
	o, _ := newTestOrchestrator(client)

	resp, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "hi",
		Mode:      string(models.ModeCrisisSupport),
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if resp.Metadata.Mode != models.ModeCrisisSupport {
		t.Errorf("expected mode override, got %s", resp.Metadata.Mode)
	}
	if resp.Metadata.ModeConfidence != 1.0 {
		t.Errorf("expected confidence 1.0 for override, got %f", resp.Metadata.ModeConfidence)
	}
}

func TestRespondCrisisFlagForcesCrisisMode(t *testing.T) {
	client := &mockGenAI{
		toolResp: &genai.ToolCallResponse{Content: "I'm here. You're not alone right now."},
	}
	o, _ := newTestOrchestrator(client)

	resp, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "everything is falling apart",
		Context:   models.CurrentContext{Crisis: true},
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if resp.Metadata.Mode != models.ModeCrisisSupport {
		t.Errorf("expected crisis-support, got %s", resp.Metadata.Mode)
	}
}

func TestRespondClassifierFailureDefaultsFreeForm(t *testing.T) {
	client := &mockGenAI{
		structured: "not json",
		toolResp:   &genai.ToolCallResponse{Content: "Tell me more about that."},
	}
	o, _ := newTestOrchestrator(client)

	resp, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "hmm",
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if resp.Metadata.Mode != models.ModeFreeForm {
		t.Errorf("expected free-form default, got %s", resp.Metadata.Mode)
	}
	if resp.Metadata.ModeConfidence != 0 {
		t.Errorf("expected zero confidence on classifier failure, got %f", resp.Metadata.ModeConfidence)
	}
}

func TestRespondEmptyReplyIsFatal(t *testing.T) {
	client := &mockGenAI{
		structured: `{"mode":"free-form"}`,
		toolResp:   &genai.ToolCallResponse{Content: ""},
	}
	o, _ := newTestOrchestrator(client)

	_, err := o.Respond(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "hello",
	})
	if err == nil {
		t.Fatal("an empty final reply must fail validation")
	}
}

func TestRespondRejectsInvalidRequest(t *testing.T) {
	o, _ := newTestOrchestrator(&mockGenAI{})
	if _, err := o.Respond(context.Background(), models.RespondRequest{UserInput: "hi"}); err == nil {
		t.Error("expected error for missing user id")
	}
	if _, err := o.Respond(context.Background(), models.RespondRequest{UserID: "user-123456"}); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestRespondStreaming(t *testing.T) {
	client := &mockGenAI{
		structured: `{"mode":"free-form","confidence":0.7}`,
	}
	callCount := 0
	client.streamScript = func(h genai.StreamHandler) {
		callCount++
		if callCount == 1 {
			h.OnContentDelta("One moment. ")
			h.OnToolCallDelta(0, "call_1", string(models.ToolSaveGoal), `{"title":`)
			h.OnToolCallDelta(0, "", "", `"walk daily"}`)
			return
		}
		h.OnContentDelta("Saved. ")
		h.OnContentDelta("Walking daily is a lovely intention.")
	}
	o, st := newTestOrchestrator(client)

	var streamed strings.Builder
	resp, err := o.RespondStreaming(context.Background(), models.RespondRequest{
		UserID:    "user-123456",
		UserInput: "I want to walk every day",
	}, func(delta string) { streamed.WriteString(delta) })
	if err != nil {
		t.Fatalf("RespondStreaming failed: %v", err)
	}

	if resp.Text != "Saved. Walking daily is a lovely intention." {
		t.Errorf("unexpected final text: %s", resp.Text)
	}
	if resp.Metadata.ToolCallCount != 1 {
		t.Errorf("expected 1 tool call, got %d", resp.Metadata.ToolCallCount)
	}
	if goals, _ := st.ListGoals(context.Background(), "user-123456", 10); len(goals) != 1 {
		t.Error("expected streamed tool call to execute")
	}
	if !strings.Contains(streamed.String(), "Walking daily") {
		t.Errorf("expected deltas forwarded to caller, got %q", streamed.String())
	}
	// Second stream must offer no tools.
	if len(client.streamTools) != 2 || client.streamTools[1] != nil {
		t.Error("follow-up stream must not offer tools")
	}
}

func TestExtractInsights(t *testing.T) {
	text := "I hear how heavy that is. There's a pattern here around Sunday evenings. " +
		"It seems like rest feels unsafe to you. You could try a short walk. " +
		"I notice you soften when you talk about your sister. This suggests the deadline itself isn't the problem."

	insights := ExtractInsights(text)
	if len(insights) != models.MaxResponseInsights {
		t.Fatalf("expected cap of %d insights, got %d", models.MaxResponseInsights, len(insights))
	}
	if !strings.Contains(insights[0], "pattern") {
		t.Errorf("unexpected first insight: %s", insights[0])
	}
}

func TestExtractInsightsEmpty(t *testing.T) {
	insights := ExtractInsights("Just a plain supportive reply with nothing reflective.")
	if insights == nil {
		t.Fatal("insights must never be nil")
	}
	if len(insights) != 0 {
		t.Errorf("expected no insights, got %+v", insights)
	}
}
