package dto

import "time"

// ConversationTurnDTO is one turn of the inbound chat history. Exactly one
// leading system turn is expected; it is replaced by the role preset's own
// instructions at the orchestration boundary.
type ConversationTurnDTO struct {
	Id      string `json:"id,omitempty"`
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

type PlanRequest struct {
	Role    string                `json:"role" validate:"required"`
	History []ConversationTurnDTO `json:"history" validate:"required,min=1,dive"`
}

type ClassifyRequest struct {
	Role  string `json:"role" validate:"required"`
	Query string `json:"query" validate:"required"`
}

// CitationDTO ids are 1-based, dense, and ordered by provider relevance
// rank. Downstream components must never renumber them.
type CitationDTO struct {
	Id      int    `json:"id"`
	Title   string `json:"title"`
	Url     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Action plan item kinds
const (
	ActionKindSummarize = "summarize"
	ActionKindNotion    = "notion"
	ActionKindGmail     = "gmail"
)

// Action plan item statuses. The core only ever emits "pending"; the
// remaining transitions belong to the client-side confirmation layer.
const (
	ActionStatusPending = "pending"
	ActionStatusRunning = "running"
	ActionStatusDone    = "done"
	ActionStatusError   = "error"
)

type ActionPlanItemDTO struct {
	Id     string                 `json:"id"`
	Kind   string                 `json:"kind"`
	Label  string                 `json:"label"`
	Params map[string]interface{} `json:"params"`
	Status string                 `json:"status"`
	Result string                 `json:"result,omitempty"`
}

type NextActionDTO struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type StructuredAnswerDTO struct {
	Answer      string          `json:"answer"`
	Bullets     []string        `json:"bullets"`
	Citations   []CitationDTO   `json:"citations"`
	Followups   []string        `json:"followups"`
	NextActions []NextActionDTO `json:"nextActions"`
}

type ResponseMetadataDTO struct {
	Intent    string   `json:"intent"`
	Topic     string   `json:"topic"`
	ToolCalls []string `json:"toolCalls"`
}

// PlanResponse is the response envelope for one orchestrated turn. When
// NeedsInfo is set, every other field except Missing/Question is empty and
// the turn performed no retrieval, reasoning, or planning.
type PlanResponse struct {
	Id         string               `json:"id,omitempty"`
	Content    string               `json:"content,omitempty"`
	Citations  []CitationDTO        `json:"citations,omitempty"`
	Plan       []*ActionPlanItemDTO `json:"plan,omitempty"`
	Structured *StructuredAnswerDTO `json:"structured,omitempty"`
	Metadata   *ResponseMetadataDTO `json:"metadata,omitempty"`

	NeedsInfo bool     `json:"needs_info,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Question  string   `json:"question,omitempty"`
}

type ClassifyResponse struct {
	Intent string `json:"intent,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Needs  struct {
		Location bool `json:"location"`
		Email    bool `json:"email"`
	} `json:"needs"`

	NeedsInfo bool     `json:"needs_info,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Question  string   `json:"question,omitempty"`
}

type RoleProfileResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type ExchangeSummaryDTO struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Query     string    `json:"query"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ExchangeHistoryResponse struct {
	Items []ExchangeSummaryDTO `json:"items"`
	Total int64                `json:"total"`
}
