package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/genai"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// mockGenAI implements genai.ClientInterface for flow tests.
type mockGenAI struct {
	structured    string
	structuredErr error

	toolResp *genai.ToolCallResponse
	toolErr  error

	finalText string
	finalErr  error

	toolCallsSeen    [][]openai.ChatCompletionToolParam
	messageCallCount int
	lastMessages     []openai.ChatCompletionMessageParamUnion

	streamScript func(h genai.StreamHandler)
	streamTools  [][]openai.ChatCompletionToolParam
}

func (m *mockGenAI) Model() string { return "test-model" }

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.messageCallCount++
	m.lastMessages = messages
	return m.finalText, m.finalErr
}

func (m *mockGenAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	m.toolCallsSeen = append(m.toolCallsSeen, tools)
	m.lastMessages = messages
	return m.toolResp, m.toolErr
}

func (m *mockGenAI) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.structured, m.structuredErr
}

func (m *mockGenAI) GenerateStreamingWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam, h genai.StreamHandler) error {
	m.streamTools = append(m.streamTools, tools)
	m.lastMessages = messages
	if m.streamScript != nil {
		m.streamScript(h)
	}
	return nil
}

func TestClassifyParsesVerdict(t *testing.T) {
	c := NewModeClassifier(&mockGenAI{structured: `{"mode":"daily-check-in","confidence":0.9,"reason":"sharing their day"}`})
	v := c.Classify(context.Background(), "today was long but okay", models.CurrentContext{}, nil)
	if v == nil {
		t.Fatal("expected verdict")
	}
	if v.Mode != models.ModeDailyCheckIn {
		t.Errorf("expected daily-check-in, got %s", v.Mode)
	}
	if v.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", v.Confidence)
	}
}

func TestClassifyExtractsWrappedJSON(t *testing.T) {
	c := NewModeClassifier(&mockGenAI{structured: "Here is my answer:\n```json\n{\"mode\":\"crisis-support\",\"confidence\":0.95}\n```"})
	v := c.Classify(context.Background(), "I can't do this anymore", models.CurrentContext{}, nil)
	if v == nil {
		t.Fatal("expected verdict despite prose wrapping")
	}
	if v.Mode != models.ModeCrisisSupport {
		t.Errorf("expected crisis-support, got %s", v.Mode)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  float64
	}{
		{"above one", `{"mode":"daily-check-in","confidence":3.5}`, 1},
		{"negative", `{"mode":"daily-check-in","confidence":-0.2}`, 0},
		{"in range", `{"mode":"daily-check-in","confidence":0.4}`, 0.4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl := NewModeClassifier(&mockGenAI{structured: c.reply})
			v := cl.Classify(context.Background(), "today was fine", models.CurrentContext{}, nil)
			if v == nil {
				t.Fatal("expected verdict")
			}
			if v.Confidence != c.want {
				t.Errorf("expected confidence %f, got %f", c.want, v.Confidence)
			}
		})
	}
}

func TestClassifyNilOnModelFailure(t *testing.T) {
	c := NewModeClassifier(&mockGenAI{structuredErr: errors.New("rate limited")})
	if v := c.Classify(context.Background(), "hello", models.CurrentContext{}, nil); v != nil {
		t.Errorf("expected nil on model failure, got %+v", v)
	}
}

func TestClassifyNilOnGarbage(t *testing.T) {
	c := NewModeClassifier(&mockGenAI{structured: "no json here at all"})
	if v := c.Classify(context.Background(), "hello", models.CurrentContext{}, nil); v != nil {
		t.Errorf("expected nil on unparseable reply, got %+v", v)
	}
}

func TestNormalizeModeSynonyms(t *testing.T) {
	cases := []struct {
		raw  string
		want models.ConversationMode
	}{
		{"crisis-support", models.ModeCrisisSupport},
		{"crisis", models.ModeCrisisSupport},
		{"CRISIS_SUPPORT", models.ModeCrisisSupport},
		{"checkin", models.ModeDailyCheckIn},
		{"daily check in", models.ModeDailyCheckIn},
		{"insight", models.ModeInsightGeneration},
		{"reflection", models.ModeInsightGeneration},
		{"freeform", models.ModeFreeForm},
		{"free_form", models.ModeFreeForm},
		{"something-unheard-of", models.ModeFreeForm},
		{"", models.ModeFreeForm},
	}
	for _, c := range cases {
		if got := normalizeMode(c.raw); got != c.want {
			t.Errorf("normalizeMode(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	if got := extractJSONObject(`prefix {"a":1} suffix`); got != `{"a":1}` {
		t.Errorf("unexpected extraction: %s", got)
	}
	if got := extractJSONObject("no braces"); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
	if got := extractJSONObject("}{"); got != "" {
		t.Errorf("expected empty string for inverted braces, got %s", got)
	}
}
