package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/llm"
)

// Intent categories
const (
	IntentInfoLookup    = "info_lookup"
	IntentSummarize     = "summarize"
	IntentEmailDraft    = "email_draft"
	IntentActionRequest = "action_request"
	IntentChitchat      = "chitchat"
)

// Result is a resolved user intention.
type Result struct {
	Intent string `json:"intent"`
	Topic  string `json:"topic"`
	Needs  Needs  `json:"needs"`
}

// Needs flags context the query depends on but does not carry.
type Needs struct {
	Location bool `json:"location"`
	Email    bool `json:"email"`
}

// NeedsInfo is the short-circuit outcome: the orchestration must stop and
// surface Question to the user instead of proceeding. It is not an error.
type NeedsInfo struct {
	Missing  []string `json:"missing"`
	Question string   `json:"question"`
}

// Classifier performs pure LLM-based intent classification.
// No retrieval, no tools, just understanding.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
	timeout     time.Duration
}

func NewClassifier(llmProvider llm.LLMProvider, logger *log.Logger, timeout time.Duration) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
		timeout:     timeout,
	}
}

// Classify analyzes the query and returns exactly one of (Result, NeedsInfo).
// Any failure (network, malformed model output) degrades to the default
// info_lookup result; classification is never fatal.
func (c *Classifier) Classify(ctx context.Context, query string, profile roles.Profile) (*Result, *NeedsInfo) {
	prompt := c.buildPrompt(query, profile)

	res := bound.Call(ctx, c.timeout, "", func(ctx context.Context) (string, error) {
		// Temperature 0 for deterministic output
		return c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	})
	if res.Err != nil {
		c.logger.Printf("[ERROR] Intent classification failed (timedOut=%v): %v", res.TimedOut, res.Err)
		return c.fallbackResult(query), nil
	}

	result, err := parseResult(res.Value)
	if err != nil {
		c.logger.Printf("[WARN] Intent parsing failed, using fallback: %v", err)
		return c.fallbackResult(query), nil
	}

	if result.Needs.Location || result.Needs.Email {
		needs := buildNeedsInfo(result.Needs)
		c.logger.Printf("[INTENT] Needs info: %v", needs.Missing)
		return nil, needs
	}

	c.logger.Printf("[INTENT] Classified: %s (Topic: %q)", result.Intent, result.Topic)
	return result, nil
}

func (c *Classifier) buildPrompt(query string, profile roles.Profile) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are an intent analyzer for a personal assistant. Your ONLY job is to classify what the user wants.\n")
	prompt.WriteString("You do NOT answer questions. You only classify intent.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<assistant_role>\n")
	prompt.WriteString(fmt.Sprintf("The assistant is operating as: %s\n", profile.Label))
	prompt.WriteString("</assistant_role>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("Choose ONE intent that best matches what the user wants:\n\n")

	prompt.WriteString("info_lookup: User wants current or factual information that may need a web search\n")
	prompt.WriteString("  - 'What are the benefits of remote work?', 'latest news about X'\n\n")

	prompt.WriteString("summarize: User wants existing content condensed or saved as a note\n")
	prompt.WriteString("  - 'Summarize this meeting', 'save these points'\n\n")

	prompt.WriteString("email_draft: User wants an email written or sent\n")
	prompt.WriteString("  - 'Email Sarah about the schedule', 'draft a reply to this'\n\n")

	prompt.WriteString("action_request: User wants a concrete task done that combines lookup and a side action\n")
	prompt.WriteString("  - 'Find flight options and save them to Notion'\n\n")

	prompt.WriteString("chitchat: Greeting, small talk, or conversation about the assistant itself\n")
	prompt.WriteString("  - 'How are you doing today?', 'thanks!'\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<missing_context>\n")
	prompt.WriteString("Set needs.location=true ONLY if the answer depends on where the user is AND the query does not say where.\n")
	prompt.WriteString("  - 'What's the weather like?' -> needs.location=true\n")
	prompt.WriteString("  - 'What's the weather in Osaka?' -> needs.location=false\n")
	prompt.WriteString("Set needs.email=true ONLY if the user wants an email sent but no recipient address can be determined.\n")
	prompt.WriteString("</missing_context>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent\": \"info_lookup|summarize|email_draft|action_request|chitchat\",\n")
	prompt.WriteString("  \"topic\": \"short topic phrase\",\n")
	prompt.WriteString("  \"needs\": {\"location\": false, \"email\": false}\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseResult(response string) (*Result, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	// Validate and normalize
	result.Intent = strings.ToLower(strings.TrimSpace(result.Intent))
	switch result.Intent {
	case IntentInfoLookup, IntentSummarize, IntentEmailDraft, IntentActionRequest, IntentChitchat:
	default:
		return nil, fmt.Errorf("unknown intent %q", result.Intent)
	}

	return &result, nil
}

func (c *Classifier) fallbackResult(query string) *Result {
	// Default: treat as an information lookup about the raw query
	return &Result{
		Intent: IntentInfoLookup,
		Topic:  query,
	}
}

func buildNeedsInfo(needs Needs) *NeedsInfo {
	var missing []string
	var asks []string
	if needs.Location {
		missing = append(missing, "location")
		asks = append(asks, "where you are")
	}
	if needs.Email {
		missing = append(missing, "email")
		asks = append(asks, "the recipient's email address")
	}
	return &NeedsInfo{
		Missing:  missing,
		Question: fmt.Sprintf("Happy to help! Could you tell me %s first?", strings.Join(asks, " and ")),
	}
}

// AllowsTools reports whether the reasoner should be offered the tool
// registry for this intent. Chitchat disables tools entirely.
func AllowsTools(intentName string) bool {
	return intentName != IntentChitchat
}

// WantsSearch reports whether the turn should be augmented with live web
// search results.
func WantsSearch(intentName string) bool {
	switch intentName {
	case IntentInfoLookup, IntentSummarize, IntentActionRequest:
		return true
	}
	return false
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
