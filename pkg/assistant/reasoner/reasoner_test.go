package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"quickhand-be/pkg/llm"
)

type stubProvider struct {
	toolResult *llm.ToolResult
	toolErr    error
	chatResp   string
	chatErr    error
	delay      time.Duration

	gotTools []llm.Tool
}

func (s *stubProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ToolResult, error) {
	s.gotTools = tools
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.toolResult, s.toolErr
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.chatResp, s.chatErr
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.chatResp, s.chatErr
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

func TestReasonReturnsContentAndToolCalls(t *testing.T) {
	stub := &stubProvider{
		toolResult: &llm.ToolResult{
			Content: "Here is what I found.",
			ToolCalls: []llm.ToolCall{
				{Name: ToolNotionCreate, Arguments: json.RawMessage(`{"title":"Trip notes"}`)},
			},
		},
	}
	r := NewReasoner(stub, testLogger(), time.Second)

	out := r.Reason(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, true)

	if out.Content != "Here is what I found." {
		t.Errorf("content = %q", out.Content)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != ToolNotionCreate {
		t.Errorf("tool calls = %+v", out.ToolCalls)
	}
	if out.Degraded {
		t.Error("successful pass should not be marked degraded")
	}
	if len(stub.gotTools) != 3 {
		t.Errorf("expected full registry offered, got %d tools", len(stub.gotTools))
	}
}

func TestReasonWithholdsToolsWhenNotAllowed(t *testing.T) {
	stub := &stubProvider{toolResult: &llm.ToolResult{Content: "Hello!"}}
	r := NewReasoner(stub, testLogger(), time.Second)

	r.Reason(context.Background(), []llm.Message{{Role: "user", Content: "hey"}}, false)

	if len(stub.gotTools) != 0 {
		t.Errorf("tools offered on a conversational turn: %d", len(stub.gotTools))
	}
}

func TestReasonFallsBackToPlainChat(t *testing.T) {
	stub := &stubProvider{
		toolErr:  errors.New("tool endpoint unavailable"),
		chatResp: "Plain answer.",
	}
	r := NewReasoner(stub, testLogger(), time.Second)

	out := r.Reason(context.Background(), []llm.Message{{Role: "user", Content: "q"}}, true)

	if out.Content != "Plain answer." {
		t.Errorf("content = %q, want plain chat fallback", out.Content)
	}
	if !out.Degraded {
		t.Error("fallback pass should be marked degraded")
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("fallback pass must not carry tool calls, got %+v", out.ToolCalls)
	}
}

func TestReasonCannedMessageWhenEverythingFails(t *testing.T) {
	stub := &stubProvider{
		toolErr: errors.New("down"),
		chatErr: errors.New("still down"),
	}
	r := NewReasoner(stub, testLogger(), time.Second)

	out := r.Reason(context.Background(), []llm.Message{{Role: "user", Content: "q"}}, true)

	if out.Content != fallbackMessage {
		t.Errorf("content = %q, want canned fallback", out.Content)
	}
	if !out.Degraded {
		t.Error("canned fallback should be marked degraded")
	}
}

func TestReasonTimeoutIsEnforced(t *testing.T) {
	stub := &stubProvider{
		toolResult: &llm.ToolResult{Content: "too late"},
		delay:      5 * time.Second,
		chatResp:   "quick answer",
	}
	r := NewReasoner(stub, testLogger(), 50*time.Millisecond)

	start := time.Now()
	out := r.Reason(context.Background(), []llm.Message{{Role: "user", Content: "q"}}, true)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("reasoning took %v despite 50ms budget", elapsed)
	}
	if out.Content != "quick answer" {
		t.Errorf("content = %q, want plain fallback after timeout", out.Content)
	}
}

func TestRegistrySchemas(t *testing.T) {
	tools := Registry()
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
		if tool.Parameters["type"] != "object" {
			t.Errorf("%s: parameters root must be an object schema", tool.Name)
		}
	}
	for _, want := range []string{ToolExaSearch, ToolNotionCreate, ToolGmailCreateDraft} {
		if !names[want] {
			t.Errorf("registry missing %s", want)
		}
	}
}
