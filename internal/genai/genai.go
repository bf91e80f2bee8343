// Package genai wraps the OpenAI chat completion API for Aluuna's
// conversation pipeline: plain generation, tool-augmented generation,
// JSON-constrained generation, and streaming with tool-call deltas.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// ErrNoChoicesReturned indicates the API returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey         string
	Model          string
	MaxTokens      int64
	Temperature    float64
	temperatureSet bool
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTemperature sets the sampling temperature. When unset the API default
// is used; some model families reject non-default values.
func WithTemperature(t float64) Option {
	return func(o *Opts) {
		o.Temperature = t
		o.temperatureSet = true
	}
}

// StreamHandler receives incremental deltas from a streaming completion.
type StreamHandler interface {
	// OnContentDelta is called for each assistant text fragment.
	OnContentDelta(delta string)
	// OnToolCallDelta is called for each tool-call fragment. Only the first
	// fragment for an index carries the id and name; argument fragments must
	// be accumulated, not parsed.
	OnToolCallDelta(index int64, id, name, argsFragment string)
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
	CreateStreaming(ctx context.Context, params openai.ChatCompletionNewParams, h StreamHandler) error
}

// openaiChatService adapts the official client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

func (s *openaiChatService) CreateStreaming(ctx context.Context, params openai.ChatCompletionNewParams, h StreamHandler) error {
	stream := s.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			h.OnContentDelta(delta.Content)
		}
		for _, tc := range delta.ToolCalls {
			h.OnToolCallDelta(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
	}
	return stream.Err()
}

// ClientInterface abstracts the GenAI client for consumers and their tests.
type ClientInterface interface {
	Model() string
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error)
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateStreamingWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam, h StreamHandler) error
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat chatService
	opts Opts
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	slog.Debug("genai.NewClient: initialized", "model", cfg.Model, "max_tokens", cfg.MaxTokens)
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &openaiChatService{client: cli}, opts: cfg}, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string {
	return c.opts.Model
}

// buildParams applies the configured model, token cap and temperature.
func (c *Client) buildParams(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.opts.Model),
		Messages: messages,
	}
	if c.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.opts.MaxTokens)
	}
	if c.opts.temperatureSet {
		params.Temperature = openai.Float(c.opts.Temperature)
	}
	return params
}

// GenerateWithMessages produces a completion for a prepared message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.chat.Create(ctx, c.buildParams(messages))
	if err != nil {
		slog.Error("Client.GenerateWithMessages: API call failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// ToolCallResponse is the outcome of a tool-augmented completion: assistant
// text, tool calls, or both.
type ToolCallResponse struct {
	Content   string
	ToolCalls []models.ToolCall
}

// GenerateWithTools produces a completion with the given tools offered and
// tool choice left to the model.
func (c *Client) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error) {
	params := c.buildParams(messages)
	params.Tools = tools
	params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
		OfAuto: openai.String("auto"),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.GenerateWithTools: API call failed", "error", err)
		return nil, fmt.Errorf("chat completion with tools failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesReturned
	}

	msg := resp.Choices[0].Message
	out := &ToolCallResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			},
		})
	}
	slog.Debug("Client.GenerateWithTools: completed", "tool_calls", len(out.ToolCalls), "has_content", out.Content != "")
	return out, nil
}

// GenerateStructured produces a completion constrained to a JSON object.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := c.buildParams([]openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	})
	jsonObject := shared.NewResponseFormatJSONObjectParam()
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &jsonObject,
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.GenerateStructured: API call failed", "error", err)
		return "", fmt.Errorf("structured completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStreamingWithTools streams a tool-augmented completion, delivering
// content and tool-call fragments to the handler as they arrive.
func (c *Client) GenerateStreamingWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam, h StreamHandler) error {
	params := c.buildParams(messages)
	// The follow-up stream after tool execution offers no tools; sending
	// tool_choice without tools is an API error.
	if len(tools) > 0 {
		params.Tools = tools
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}
	if err := c.chat.CreateStreaming(ctx, params, h); err != nil {
		slog.Error("Client.GenerateStreamingWithTools: stream failed", "error", err)
		return fmt.Errorf("streaming completion failed: %w", err)
	}
	return nil
}

var _ ClientInterface = (*Client)(nil)
