package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quickhand-be/internal/config"
	"quickhand-be/internal/dto"
	"quickhand-be/internal/service"
	"quickhand-be/pkg/assistant/compose"
	"quickhand-be/pkg/assistant/intent"
	"quickhand-be/pkg/assistant/plan"
	"quickhand-be/pkg/assistant/reasoner"
	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/llm"
	"quickhand-be/pkg/memory"

	"github.com/fatih/color"
)

// Offline dry run of the assistant pipeline with a canned model. Useful
// for checking the orchestration wiring without any API keys.

type cannedProvider struct{}

func (p *cannedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "intent analyzer"):
		return `{"intent": "action_request", "topic": "weekend trip planning", "needs": {"location": false, "email": false}}`, nil
	case strings.Contains(prompt, "card-based UI"):
		return `{"answer": "Found three trip options and prepared a note.", "bullets": ["Option A is cheapest", "Option B is fastest"], "followups": ["Want hotel suggestions too?"], "nextActions": ["gmail_create_draft"]}`, nil
	case strings.Contains(prompt, "concise title"):
		return "Weekend Trip Options", nil
	default:
		return "Here are the trip options I found.", nil
	}
}

func (p *cannedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "Here are the trip options I found.", nil
}

func (p *cannedProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ToolResult, error) {
	result := &llm.ToolResult{Content: "I found three solid options for the weekend trip."}
	if len(tools) > 0 {
		result.ToolCalls = []llm.ToolCall{
			{Name: reasoner.ToolNotionCreate, Arguments: json.RawMessage(`{"title": "Weekend Trip Options"}`)},
		}
	}
	return result, nil
}

func main() {
	logger := log.New(os.Stderr, "[SIM] ", log.LstdFlags)
	provider := &cannedProvider{}
	timeouts := config.TimeoutConfig{
		Memory:      5 * time.Second,
		Search:      8 * time.Second,
		Classify:    10 * time.Second,
		Generation:  15 * time.Second,
		Reasoning:   25 * time.Second,
		Composition: 45 * time.Second,
	}

	svc := service.NewAssistantService(
		roles.DefaultRegistry(),
		intent.NewClassifier(provider, logger, timeouts.Classify),
		nil, // no web search in the dry run
		memory.NewLocalStore(),
		reasoner.NewReasoner(provider, logger, timeouts.Reasoning),
		plan.NewBuilder(provider, logger, timeouts.Generation),
		compose.NewComposer(provider, logger, timeouts.Composition),
		nil, nil, nil,
		logger,
		timeouts,
	)

	header := color.New(color.FgCyan, color.Bold)
	user := color.New(color.FgGreen)
	assistant := color.New(color.FgWhite)
	detail := color.New(color.FgYellow)

	header.Println("=== QuickHand Turn Simulation ===")

	req := &dto.PlanRequest{
		Role: "general",
		History: []dto.ConversationTurnDTO{
			{Role: "user", Content: "Find weekend trip options to the coast and save them to Notion"},
		},
	}

	user.Printf("USER: %s\n", req.History[0].Content)

	start := time.Now()
	resp, err := svc.Plan(context.Background(), "sim-user", req)
	if err != nil {
		color.Red("Turn failed: %v", err)
		os.Exit(1)
	}

	assistant.Printf("ASSISTANT (%v): %s\n", time.Since(start).Round(time.Millisecond), resp.Content)

	if resp.Metadata != nil {
		detail.Printf("  intent=%s topic=%q toolCalls=%v\n", resp.Metadata.Intent, resp.Metadata.Topic, resp.Metadata.ToolCalls)
	}
	for _, item := range resp.Plan {
		detail.Printf("  plan: [%s] %s (%s)\n", item.Kind, item.Label, item.Status)
	}
	if resp.Structured != nil {
		for _, b := range resp.Structured.Bullets {
			fmt.Printf("   - %s\n", b)
		}
		for _, f := range resp.Structured.Followups {
			detail.Printf("   ? %s\n", f)
		}
	}

	header.Println("=== Done ===")
}
