package dto

// ExecuteActionRequest carries one confirmed action plan item from the
// client-side checkpoint. Params mirrors ActionPlanItemDTO.Params.
type ExecuteActionRequest struct {
	Id     string                 `json:"id" validate:"required"`
	Kind   string                 `json:"kind" validate:"required,oneof=notion gmail"`
	Params map[string]interface{} `json:"params" validate:"required"`
}

type ExecuteActionResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

type ProviderStatusResponse struct {
	Provider      string `json:"provider"`
	Connected     bool   `json:"connected"`
	WorkspaceName string `json:"workspaceName,omitempty"`
}
