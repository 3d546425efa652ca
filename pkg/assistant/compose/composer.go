package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"quickhand-be/internal/dto"
	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/llm"
)

// Composer restructures a raw answer into the card-friendly layout the
// clients render. Composition is cosmetic: failure degrades to a minimal
// structure built from the raw answer, never to an error.
type Composer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
	timeout     time.Duration
}

func NewComposer(llmProvider llm.LLMProvider, logger *log.Logger, timeout time.Duration) *Composer {
	return &Composer{
		llmProvider: llmProvider,
		logger:      logger,
		timeout:     timeout,
	}
}

// rawStructured is the model-facing shape. NextActions accepts both bare
// strings and {tool, params} objects; models alternate between the two.
type rawStructured struct {
	Answer      string            `json:"answer"`
	Bullets     []string          `json:"bullets"`
	Followups   []string          `json:"followups"`
	NextActions []json.RawMessage `json:"nextActions"`
}

// Compose produces the structured answer. Citations always come from the
// caller's frozen list, never from the model, so inline [n] markers in the
// answer stay resolvable.
func (c *Composer) Compose(ctx context.Context, query, rawAnswer string, citations []dto.CitationDTO, planItems []*dto.ActionPlanItemDTO) *dto.StructuredAnswerDTO {
	prompt := c.buildPrompt(query, rawAnswer, citations, planItems)

	res := bound.Call(ctx, c.timeout, "", func(ctx context.Context) (string, error) {
		return c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	})
	if res.Err != nil {
		c.logger.Printf("[WARN] Composition failed (timedOut=%v), using fallback: %v", res.TimedOut, res.Err)
		return fallbackStructure(rawAnswer, citations)
	}

	structured, err := parseStructured(res.Value, citations)
	if err != nil {
		c.logger.Printf("[WARN] Composition parsing failed, using fallback: %v", err)
		return fallbackStructure(rawAnswer, citations)
	}
	if structured.Answer == "" {
		structured.Answer = rawAnswer
	}
	if len(structured.Bullets) == 0 {
		structured.Bullets = []string{rawAnswer}
	}
	return structured
}

func (c *Composer) buildPrompt(query, rawAnswer string, citations []dto.CitationDTO, planItems []*dto.ActionPlanItemDTO) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You restructure an assistant's answer for a card-based UI. Do not add new facts.\n")
	prompt.WriteString("Keep any [n] citation markers exactly as they appear; never renumber them.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<answer>\n")
	prompt.WriteString(rawAnswer)
	prompt.WriteString("\n</answer>\n\n")

	if len(citations) > 0 {
		prompt.WriteString("<sources>\n")
		for _, cit := range citations {
			prompt.WriteString(fmt.Sprintf("[%d] %s (%s)\n", cit.Id, cit.Title, cit.Url))
		}
		prompt.WriteString("</sources>\n\n")
	}

	if len(planItems) > 0 {
		prompt.WriteString("<prepared_actions>\n")
		for _, item := range planItems {
			prompt.WriteString(fmt.Sprintf("- %s: %s\n", item.Kind, item.Label))
		}
		prompt.WriteString("</prepared_actions>\n\n")
	}

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"answer\": \"a 1-3 sentence summary, keeping [n] markers\",\n")
	prompt.WriteString("  \"bullets\": [\"key point 1\", \"key point 2\"],\n")
	prompt.WriteString("  \"followups\": [\"suggested follow-up question 1\", \"question 2\"],\n")
	prompt.WriteString("  \"nextActions\": [{\"tool\": \"tool_name\", \"params\": {}}]\n")
	prompt.WriteString("}\n")
	prompt.WriteString("nextActions are OPTIONAL suggestions for what the user could do next.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseStructured(response string, citations []dto.CitationDTO) (*dto.StructuredAnswerDTO, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw rawStructured
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	return &dto.StructuredAnswerDTO{
		Answer:      strings.TrimSpace(raw.Answer),
		Bullets:     raw.Bullets,
		Citations:   citations,
		Followups:   raw.Followups,
		NextActions: normalizeNextActions(raw.NextActions),
	}, nil
}

// normalizeNextActions accepts each element as either a bare tool name
// string or a {tool, params} object and drops anything else.
func normalizeNextActions(raw []json.RawMessage) []dto.NextActionDTO {
	out := make([]dto.NextActionDTO, 0, len(raw))
	for _, r := range raw {
		var asString string
		if err := json.Unmarshal(r, &asString); err == nil && asString != "" {
			out = append(out, dto.NextActionDTO{Tool: asString})
			continue
		}
		var asObject dto.NextActionDTO
		if err := json.Unmarshal(r, &asObject); err == nil && asObject.Tool != "" {
			out = append(out, asObject)
		}
	}
	return out
}

func fallbackStructure(rawAnswer string, citations []dto.CitationDTO) *dto.StructuredAnswerDTO {
	return &dto.StructuredAnswerDTO{
		Answer:    rawAnswer,
		Bullets:   []string{rawAnswer},
		Citations: citations,
		Followups: []string{
			"Would you like more detail on any of this?",
			"Should I save this somewhere for you?",
		},
		NextActions: []dto.NextActionDTO{},
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
