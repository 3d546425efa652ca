package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/llm"
)

type stubProvider struct {
	response string
	err      error
	delay    time.Duration
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func generalProfile() roles.Profile {
	return roles.DefaultRegistry().Get("general")
}

func TestClassifyParsesModelOutput(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantIntent string
		wantTopic  string
	}{
		{
			name:       "plain JSON",
			response:   `{"intent": "chitchat", "topic": "greeting", "needs": {"location": false, "email": false}}`,
			wantIntent: IntentChitchat,
			wantTopic:  "greeting",
		},
		{
			name:       "JSON wrapped in prose",
			response:   "Sure, here is the classification:\n{\"intent\": \"email_draft\", \"topic\": \"schedule update\", \"needs\": {}}\nDone.",
			wantIntent: IntentEmailDraft,
			wantTopic:  "schedule update",
		},
		{
			name:       "uppercase intent is normalized",
			response:   `{"intent": "INFO_LOOKUP", "topic": "remote work"}`,
			wantIntent: IntentInfoLookup,
			wantTopic:  "remote work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&stubProvider{response: tt.response}, testLogger(), time.Second)
			result, needs := c.Classify(context.Background(), "whatever", generalProfile())

			if needs != nil {
				t.Fatalf("unexpected NeedsInfo: %+v", needs)
			}
			if result.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", result.Intent, tt.wantIntent)
			}
			if result.Topic != tt.wantTopic {
				t.Errorf("Topic = %q, want %q", result.Topic, tt.wantTopic)
			}
		})
	}
}

func TestClassifyDegradesToInfoLookup(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("connection refused")}},
		{"no JSON in output", &stubProvider{response: "I think the user wants information."}},
		{"unknown intent", &stubProvider{response: `{"intent": "world_domination", "topic": "x"}`}},
		{"timeout", &stubProvider{response: `{"intent": "chitchat"}`, delay: 5 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.provider, testLogger(), 50*time.Millisecond)
			result, needs := c.Classify(context.Background(), "what is the best coffee", generalProfile())

			if needs != nil {
				t.Fatalf("unexpected NeedsInfo: %+v", needs)
			}
			if result.Intent != IntentInfoLookup {
				t.Errorf("Intent = %q, want fallback %q", result.Intent, IntentInfoLookup)
			}
			if result.Topic != "what is the best coffee" {
				t.Errorf("Topic = %q, want raw query", result.Topic)
			}
		})
	}
}

func TestClassifyShortCircuitsOnMissingContext(t *testing.T) {
	c := NewClassifier(&stubProvider{
		response: `{"intent": "info_lookup", "topic": "weather", "needs": {"location": true, "email": false}}`,
	}, testLogger(), time.Second)

	result, needs := c.Classify(context.Background(), "what's the weather like?", generalProfile())

	if result != nil {
		t.Fatalf("expected NeedsInfo, got result %+v", result)
	}
	if needs == nil {
		t.Fatal("NeedsInfo is nil")
	}
	if len(needs.Missing) != 1 || needs.Missing[0] != "location" {
		t.Errorf("Missing = %v, want [location]", needs.Missing)
	}
	if needs.Question == "" {
		t.Error("Question is empty")
	}
}

func TestClassifyReportsBothMissingFields(t *testing.T) {
	c := NewClassifier(&stubProvider{
		response: `{"intent": "email_draft", "topic": "invite", "needs": {"location": true, "email": true}}`,
	}, testLogger(), time.Second)

	_, needs := c.Classify(context.Background(), "email the venue near me", generalProfile())
	if needs == nil {
		t.Fatal("NeedsInfo is nil")
	}
	if len(needs.Missing) != 2 {
		t.Errorf("Missing = %v, want both fields", needs.Missing)
	}
}

func TestToolGating(t *testing.T) {
	if AllowsTools(IntentChitchat) {
		t.Error("chitchat must never be offered tools")
	}
	for _, in := range []string{IntentInfoLookup, IntentSummarize, IntentEmailDraft, IntentActionRequest} {
		if !AllowsTools(in) {
			t.Errorf("AllowsTools(%q) = false, want true", in)
		}
	}
	if WantsSearch(IntentChitchat) || WantsSearch(IntentEmailDraft) {
		t.Error("chitchat and email_draft must not trigger search")
	}
	if !WantsSearch(IntentInfoLookup) {
		t.Error("info_lookup must trigger search")
	}
}
