package llm

import (
	"context"
	"encoding/json"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Tool describes one callable capability exposed to the model.
// Parameters is a JSON-schema object in the OpenAI function format.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is one structured invocation emitted by the model.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// ToolResult is the outcome of a tool-enabled chat turn. A turn may carry
// content, tool calls, or both.
type ToolResult struct {
	Content   string
	ToolCalls []ToolCall
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// ToolCallingProvider is implemented by backends that support structured
// tool invocation. Passing an empty tools slice must behave exactly like
// a plain Chat call.
type ToolCallingProvider interface {
	LLMProvider

	ChatWithTools(ctx context.Context, history []Message, tools []Tool, options ...Option) (*ToolResult, error)
}
