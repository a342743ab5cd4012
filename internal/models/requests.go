package models

// ChatRequest is the inbound body of both chat endpoints.
type ChatRequest struct {
	Prompt string `json:"prompt"`
	// Context is accepted for client compatibility; it is not forwarded upstream.
	Context        string `json:"context"`
	ConversationID *uint  `json:"conversationId"`
}

type NovelRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=1000"`
}

type ChapterRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content"`
}

type ConversationRequest struct {
	Title *string `json:"title" binding:"omitempty,max=255"`
}
