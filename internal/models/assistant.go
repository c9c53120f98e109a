package models

// Chat roles accepted in assistant history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of client-held conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the POST /api/assistant/ask body.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000,no_null_bytes"`
}

// ChatRequest is the POST /api/assistant/chat body.
type ChatRequest struct {
	Message string        `json:"message" validate:"required,max=2000,no_null_bytes"`
	History []ChatMessage `json:"history,omitempty"`
}

// Source is a retrieved menu item cited by an answer. Similarity is rounded to two decimals.
type Source struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Similarity float64 `json:"similarity"`
}

// Answer is the assistant's reply to a single question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// ToolUse names a tool the assistant ran while answering.
type ToolUse struct {
	Tool string `json:"tool"`
}

// ChatResponse is the assistant's reply on the chat endpoint. The client sends its whole
// history on every turn; only the most recent messages reach the model.
type ChatResponse struct {
	Response  string    `json:"response"`
	Sources   []Source  `json:"sources"`
	ToolsUsed []ToolUse `json:"toolsUsed,omitempty"`
}

// AssistantStatus reports readiness of the assistant pipeline.
type AssistantStatus struct {
	Agent       bool `json:"agent"`
	RAG         bool `json:"rag"`
	VectorStore bool `json:"vectorStore"`
	MenuItems   int  `json:"menuItems"`
}

// ReindexRequest is the POST /api/assistant/reindex body.
type ReindexRequest struct {
	Source string `json:"source" validate:"omitempty,oneof=live static"`
}

// ReindexResponse acknowledges a queued reindex.
type ReindexResponse struct {
	JobID  int64  `json:"job_id"`
	Source string `json:"source"`
	Queued bool   `json:"queued"`
}

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	System      string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}
