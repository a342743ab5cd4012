package errors

// Error codes shared across handlers and the chat pipeline.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeNovelNotFound        = "NOVEL_NOT_FOUND"
	CodeChapterNotFound      = "CHAPTER_NOT_FOUND"
	CodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	CodePersistence          = "PERSISTENCE_ERROR"
	CodeUpstream             = "UPSTREAM_ERROR"
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeStreamTimeout        = "STREAM_TIMEOUT"
	CodeStreamFailed         = "STREAM_FAILED"
	CodePoolSaturated        = "CHAT_POOL_SATURATED"
	CodeBusyConversation     = "BUSY_CONVERSATION"
	CodeRateLimited          = "RATE_LIMIT_EXCEEDED"
)
