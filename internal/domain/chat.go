package domain

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn. Assistant turns may carry a suggested
// contract rewrite that the user can apply to the document.
type Message struct {
	ID                string     `json:"id"`
	Role              string     `json:"role"`
	Content           string     `json:"content"`
	AppliedSuggestion string     `json:"applied_suggestion,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
	Edited            bool       `json:"edited,omitempty"`
	EditedAt          *time.Time `json:"edited_at,omitempty"`
}

// ChatRequest is the request body for sending a chat message.
type ChatRequest struct {
	Content string `json:"content" binding:"required"`
}

// SuggestRequest asks for a predictive completion of partial input.
type SuggestRequest struct {
	Input string `json:"input" binding:"required"`
}

// ModifyRequest carries a contract-modification instruction. An empty
// instruction is valid input, not a validation error.
type ModifyRequest struct {
	Instruction string `json:"instruction"`
}

// SaveDocumentRequest is an editor save. Revision, when non-nil, enables a
// compare-and-set against the current document revision.
type SaveDocumentRequest struct {
	Content  string `json:"content" binding:"required"`
	Revision *int   `json:"revision"`
}
