package usage

import "time"

// ModelUsage records a single chat-model call: who asked, which model
// answered, what it cost in tokens and time. Rows are batch-inserted into
// ClickHouse, so fields carry ch tags.
type ModelUsage struct {
	Timestamp        time.Time `ch:"timestamp"`
	EventID          string    `ch:"event_id"`
	SessionID        string    `ch:"session_id"`
	Component        string    `ch:"component"` // planner | trader_summary
	Provider         string    `ch:"provider"`
	Model            string    `ch:"model"`
	PromptTokens     uint32    `ch:"prompt_tokens"`
	CompletionTokens uint32    `ch:"completion_tokens"`
	TotalTokens      uint32    `ch:"total_tokens"`
	ToolCalls        uint16    `ch:"tool_calls"`
	LatencyMs        uint32    `ch:"latency_ms"`
	CreatedAt        time.Time `ch:"created_at"`
}
