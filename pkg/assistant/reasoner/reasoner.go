package reasoner

import (
	"context"
	"log"
	"time"

	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/llm"
)

const fallbackMessage = "I'm having trouble reaching my reasoning service right now. Please try again in a moment."

// Outcome is what one reasoning pass produced: the draft answer and any
// structured tool invocations the model decided on.
type Outcome struct {
	Content   string
	ToolCalls []llm.ToolCall
	Degraded  bool
}

// Reasoner runs the core generation step of a turn. It always returns an
// Outcome; when the tool-enabled call fails it retries without tools, and
// when that fails too it falls back to a canned message.
type Reasoner struct {
	llmProvider llm.ToolCallingProvider
	logger      *log.Logger
	timeout     time.Duration
}

func NewReasoner(llmProvider llm.ToolCallingProvider, logger *log.Logger, timeout time.Duration) *Reasoner {
	return &Reasoner{
		llmProvider: llmProvider,
		logger:      logger,
		timeout:     timeout,
	}
}

// Reason generates the assistant reply for the prepared history. When
// allowTools is false the registry is withheld entirely, so the model
// cannot emit tool calls for conversational turns.
func (r *Reasoner) Reason(ctx context.Context, history []llm.Message, allowTools bool) *Outcome {
	var tools []llm.Tool
	if allowTools {
		tools = Registry()
	}

	res := bound.Call(ctx, r.timeout, nil, func(ctx context.Context) (*llm.ToolResult, error) {
		return r.llmProvider.ChatWithTools(ctx, history, tools)
	})
	if res.Err == nil && res.Value != nil {
		return &Outcome{
			Content:   res.Value.Content,
			ToolCalls: res.Value.ToolCalls,
		}
	}
	r.logger.Printf("[WARN] Tool-enabled reasoning failed (timedOut=%v): %v", res.TimedOut, res.Err)

	// Second attempt: plain chat, no tools. Keeps the turn alive when the
	// failure was tool-specific or transient.
	plain := bound.Call(ctx, r.timeout, "", func(ctx context.Context) (string, error) {
		return r.llmProvider.Chat(ctx, history)
	})
	if plain.Err == nil && plain.Value != "" {
		return &Outcome{Content: plain.Value, Degraded: true}
	}
	r.logger.Printf("[ERROR] Plain reasoning fallback failed (timedOut=%v): %v", plain.TimedOut, plain.Err)

	return &Outcome{Content: fallbackMessage, Degraded: true}
}
