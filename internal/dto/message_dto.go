package dto

// MemoryAppendMessage is the payload carried on the in-process bus from
// the orchestrator to the memory consumer.
type MemoryAppendMessage struct {
	UserId  string   `json:"user_id"`
	Scope   string   `json:"scope"`
	Entries []string `json:"entries"`
}
