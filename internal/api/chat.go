package api

import (
	"net/http"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/service"
	"novel-forge/backend/internal/stream"
	apperrors "novel-forge/backend/pkg/errors"
	"novel-forge/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the AI chat endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// RegisterRoutes mounts the chat endpoints under /api/ai.
func (h *ChatHandler) RegisterRoutes(api *gin.RouterGroup) {
	ai := api.Group("/ai")
	{
		ai.POST("/chat", h.Chat)
		ai.POST("/chat/stream", h.Stream)
	}
}

func bindChatRequest(c *gin.Context) (models.ChatRequest, bool) {
	var req models.ChatRequest
	return req, bindJSON(c, &req)
}

// Chat answers with the full reply as plain text. Upstream failures come
// back as a 200 with a readable error string.
func (h *ChatHandler) Chat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, h.chat.Chat(c.Request.Context(), req))
}

// Stream relays the reply as server-sent events. A failure after the
// stream started is reported with an error event followed by an abnormal
// close of the connection.
func (h *ChatHandler) Stream(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	ch, err := h.chat.StreamChat(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	log := logger.FromContext(c)
	w, err := stream.NewSSEWriter(c.Writer)
	if err != nil {
		ch.Abort(err)
		_ = c.Error(apperrors.NewInternalServerError(apperrors.CodeStreamFailed, "Streaming not supported").Wrap(err))
		return
	}

	stream.SetSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	if err := w.Pump(ch); err != nil {
		log.Warn("Chat stream closed abnormally",
			"error_code", apperrors.GetErrorCode(err),
			"error", err.Error(),
		)
		panic(http.ErrAbortHandler)
	}
}
