package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"quickhand-be/internal/dto"
	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/llm"

	"github.com/google/uuid"
)

const (
	fallbackNotionTitle = "Note"
	fallbackSubject     = "Message from QuickHand"
)

// NotionArgs mirrors the notion_create_page tool schema.
type NotionArgs struct {
	Title     string `json:"title"`
	ContentMd string `json:"content_md"`
}

// GmailArgs mirrors the gmail_create_draft tool schema.
type GmailArgs struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	BodyText string   `json:"body_text"`
}

// Builder turns model tool calls into pending action plan items. Items are
// fully materialized here (titles, bodies, subjects) so the client-side
// confirmation step shows exactly what would be executed.
type Builder struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
	timeout     time.Duration
}

func NewBuilder(llmProvider llm.LLMProvider, logger *log.Logger, timeout time.Duration) *Builder {
	return &Builder{
		llmProvider: llmProvider,
		logger:      logger,
		timeout:     timeout,
	}
}

// BuildNotion materializes a notion_create_page call. Missing content falls
// back to the answer text; a missing title is generated from the content.
func (b *Builder) BuildNotion(ctx context.Context, rawArgs json.RawMessage, answer string, citations []dto.CitationDTO) *dto.ActionPlanItemDTO {
	var args NotionArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			b.logger.Printf("[WARN] Malformed notion_create_page arguments, using defaults: %v", err)
		}
	}

	content := strings.TrimSpace(args.ContentMd)
	if content == "" {
		content = answer
	}

	title := strings.TrimSpace(args.Title)
	if title == "" {
		title = b.generateTitle(ctx, content)
	}

	params := map[string]interface{}{
		"title":      title,
		"content_md": content,
	}
	if len(citations) > 0 {
		params["citations"] = citations
	}

	return &dto.ActionPlanItemDTO{
		Id:     newItemId(dto.ActionKindNotion),
		Kind:   dto.ActionKindNotion,
		Label:  fmt.Sprintf("Save \"%s\" to Notion", title),
		Params: params,
		Status: dto.ActionStatusPending,
	}
}

// BuildGmail materializes a gmail_create_draft call. Subject and body are
// generated concurrently when the model omitted them.
func (b *Builder) BuildGmail(ctx context.Context, rawArgs json.RawMessage, query, answer string) *dto.ActionPlanItemDTO {
	var args GmailArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			b.logger.Printf("[WARN] Malformed gmail_create_draft arguments, using defaults: %v", err)
		}
	}

	subject := strings.TrimSpace(args.Subject)
	body := strings.TrimSpace(args.BodyText)

	var wg sync.WaitGroup
	if subject == "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject = b.generateSubject(ctx, query)
		}()
	}
	if body == "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body = b.generateBody(ctx, query, answer)
		}()
	}
	wg.Wait()

	params := map[string]interface{}{
		"to":        args.To,
		"subject":   subject,
		"body_text": body,
		"body_html": toHTML(body),
	}

	label := "Draft an email"
	if len(args.To) > 0 {
		label = fmt.Sprintf("Draft an email to %s", strings.Join(args.To, ", "))
	}

	return &dto.ActionPlanItemDTO{
		Id:     newItemId(dto.ActionKindGmail),
		Kind:   dto.ActionKindGmail,
		Label:  label,
		Params: params,
		Status: dto.ActionStatusPending,
	}
}

// BuildSummarize covers summarize turns where the model answered directly
// without a side-effect tool call. The answer itself is the summary.
func (b *Builder) BuildSummarize(answer string) *dto.ActionPlanItemDTO {
	return &dto.ActionPlanItemDTO{
		Id:     newItemId(dto.ActionKindSummarize),
		Kind:   dto.ActionKindSummarize,
		Label:  "Summary prepared",
		Params: map[string]interface{}{"content": answer},
		Status: dto.ActionStatusPending,
	}
}

func (b *Builder) generateTitle(ctx context.Context, content string) string {
	prompt := fmt.Sprintf(
		"Write a concise title (max 60 characters) for the following note. Respond with ONLY the title, no quotes.\n\n%s",
		truncate(content, 1500),
	)
	res := bound.Call(ctx, b.timeout, "", func(ctx context.Context) (string, error) {
		return b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	})
	if res.Err != nil {
		b.logger.Printf("[WARN] Title generation failed, using fallback: %v", res.Err)
		return fallbackNotionTitle
	}
	title := strings.Trim(strings.TrimSpace(res.Value), "\"")
	if title == "" {
		return fallbackNotionTitle
	}
	if runes := []rune(title); len(runes) > 60 {
		title = string(runes[:60])
	}
	return title
}

func (b *Builder) generateSubject(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(
		"Write a short, professional email subject line for a message about the following request. Respond with ONLY the subject line.\n\nRequest: %s",
		truncate(query, 500),
	)
	res := bound.Call(ctx, b.timeout, "", func(ctx context.Context) (string, error) {
		return b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	})
	if res.Err != nil || strings.TrimSpace(res.Value) == "" {
		b.logger.Printf("[WARN] Subject generation failed, using fallback: %v", res.Err)
		return fallbackSubject
	}
	return strings.Trim(strings.TrimSpace(res.Value), "\"")
}

func (b *Builder) generateBody(ctx context.Context, query, answer string) string {
	var prompt strings.Builder
	prompt.WriteString("Compose a short, polite email body based on the user's request and the assistant's findings.\n")
	prompt.WriteString("Plain text only. No subject line, no signature placeholder.\n\n")
	prompt.WriteString("<request>\n")
	prompt.WriteString(truncate(query, 500))
	prompt.WriteString("\n</request>\n\n")
	prompt.WriteString("<findings>\n")
	prompt.WriteString(truncate(answer, 2000))
	prompt.WriteString("\n</findings>")

	res := bound.Call(ctx, b.timeout, "", func(ctx context.Context) (string, error) {
		return b.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.5))
	})
	if res.Err != nil || strings.TrimSpace(res.Value) == "" {
		b.logger.Printf("[WARN] Body generation failed, using fallback: %v", res.Err)
		return fallbackBody(answer)
	}
	return strings.TrimSpace(res.Value)
}

// fallbackBody shells the findings into a minimal message when composition
// is unavailable. The raw answer is addressed to the user, not the email
// recipient, so it never goes out as-is.
func fallbackBody(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "Hi,\n\nPlease see the details below.\n\nBest regards"
	}
	return fmt.Sprintf("Hi,\n\nSharing what I found on this:\n\n%s\n\nBest regards", truncate(answer, 2000))
}

// toHTML wraps each paragraph of plain text in <p> tags with HTML escaping.
func toHTML(body string) string {
	paragraphs := strings.Split(body, "\n\n")
	var sb strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}

func newItemId(kind string) string {
	return fmt.Sprintf("action-%s-%d-%s", kind, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// truncate cuts on a rune boundary so a multibyte character at the cutoff
// never yields invalid UTF-8.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
