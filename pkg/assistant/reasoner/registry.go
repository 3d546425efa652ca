package reasoner

import "quickhand-be/pkg/llm"

// Tool names as the model sees them. The dispatch switch in the
// orchestrator is closed over exactly this set.
const (
	ToolExaSearch        = "exa_search"
	ToolNotionCreate     = "notion_create_page"
	ToolGmailCreateDraft = "gmail_create_draft"
)

// Registry returns the fixed tool set offered to the model. The schemas
// follow the OpenAI function format.
func Registry() []llm.Tool {
	return []llm.Tool{
		{
			Name:        ToolExaSearch,
			Description: "Search the live web for current information. Use when the conversation needs facts you do not already have.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query",
					},
					"num_results": map[string]interface{}{
						"type":        "integer",
						"description": "How many results to fetch (default 5)",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolNotionCreate,
			Description: "Save content as a new Notion page. Use when the user asks to save, note down, or keep something.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Page title. Omit to have one generated.",
					},
					"content_md": map[string]interface{}{
						"type":        "string",
						"description": "Page body in markdown. Omit to use the answer text.",
					},
				},
			},
		},
		{
			Name:        ToolGmailCreateDraft,
			Description: "Prepare an email draft in Gmail. Use when the user asks to email someone or draft a message.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"to": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Recipient email addresses",
					},
					"subject": map[string]interface{}{
						"type":        "string",
						"description": "Email subject. Omit to have one generated.",
					},
					"body_text": map[string]interface{}{
						"type":        "string",
						"description": "Plain-text email body. Omit to have one composed.",
					},
				},
				"required": []string{"to"},
			},
		},
	}
}
