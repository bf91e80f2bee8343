package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp       openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams

	streamContent   []string
	streamToolCalls []mockToolDelta
	streamErr       error
}

type mockToolDelta struct {
	index int64
	id    string
	name  string
	args  string
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.lastParams = params
	return m.resp, m.err
}

func (m *mockChatService) CreateStreaming(ctx context.Context, params openai.ChatCompletionNewParams, h StreamHandler) error {
	m.lastParams = params
	if m.streamErr != nil {
		return m.streamErr
	}
	for _, c := range m.streamContent {
		h.OnContentDelta(c)
	}
	for _, tc := range m.streamToolCalls {
		h.OnToolCallDelta(tc.index, tc.id, tc.name, tc.args)
	}
	return nil
}

func newTestClient(chat chatService) *Client {
	return &Client{chat: chat, opts: Opts{Model: DefaultModel}}
}

func TestGenerateWithMessages_Success(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
			},
		},
	}
	client := newTestClient(mock)
	out, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("system prompt"),
		openai.UserMessage("user prompt"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	client := newTestClient(&mockChatService{err: errors.New("service failure")})
	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := newTestClient(&mockChatService{resp: openai.ChatCompletion{}})
	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	})
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestGenerateWithTools_ReturnsToolCalls(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Content: "",
					ToolCalls: []openai.ChatCompletionMessageToolCall{
						{
							ID: "call_1",
							Function: openai.ChatCompletionMessageToolCallFunction{
								Name:      "save_goal",
								Arguments: `{"title":"sleep earlier"}`,
							},
						},
					},
				}},
			},
		},
	}
	client := newTestClient(mock)
	resp, err := client.GenerateWithTools(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("I want to sleep earlier"),
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "save_goal" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if string(tc.Function.Arguments) != `{"title":"sleep earlier"}` {
		t.Errorf("unexpected arguments: %s", tc.Function.Arguments)
	}
}

func TestGenerateWithTools_NoToolCalls(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "plain reply"}},
			},
		},
	}
	client := newTestClient(mock)
	resp, err := client.GenerateWithTools(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Content != "plain reply" {
		t.Errorf("expected content, got '%s'", resp.Content)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(resp.ToolCalls))
	}
}

func TestGenerateStructured_SetsJSONResponseFormat(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: `{"mode":"free-form"}`}},
			},
		},
	}
	client := newTestClient(mock)
	out, err := client.GenerateStructured(context.Background(), "classify", "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"mode":"free-form"}` {
		t.Errorf("unexpected output: %s", out)
	}
	if mock.lastParams.ResponseFormat.OfJSONObject == nil {
		t.Error("expected JSON object response format to be set")
	}
}

type collectingHandler struct {
	content strings.Builder
	deltas  []mockToolDelta
}

func (h *collectingHandler) OnContentDelta(delta string) {
	h.content.WriteString(delta)
}

func (h *collectingHandler) OnToolCallDelta(index int64, id, name, args string) {
	h.deltas = append(h.deltas, mockToolDelta{index: index, id: id, name: name, args: args})
}

func TestGenerateStreamingWithTools_DeliversDeltas(t *testing.T) {
	mock := &mockChatService{
		streamContent: []string{"Hel", "lo"},
		streamToolCalls: []mockToolDelta{
			{index: 0, id: "call_1", name: "save_goal", args: `{"ti`},
			{index: 0, args: `tle":"rest"}`},
		},
	}
	client := newTestClient(mock)
	h := &collectingHandler{}
	err := client.GenerateStreamingWithTools(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	}, nil, h)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h.content.String() != "Hello" {
		t.Errorf("expected accumulated content 'Hello', got '%s'", h.content.String())
	}
	if len(h.deltas) != 2 {
		t.Fatalf("expected 2 tool deltas, got %d", len(h.deltas))
	}
	if h.deltas[0].id != "call_1" || h.deltas[1].args != `tle":"rest"}` {
		t.Errorf("unexpected deltas: %+v", h.deltas)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"), WithMaxTokens(512))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.Model() != "gpt-4o" {
		t.Errorf("expected configured model, got %s", cli.Model())
	}
}
