package api

import (
	"net/http"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler exposes stored conversations and their history.
type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) RegisterRoutes(api *gin.RouterGroup) {
	convs := api.Group("/conversations")
	{
		convs.GET("", h.List)
		convs.POST("", h.Create)
		convs.GET("/:id", h.Get)
		convs.PUT("/:id", h.Update)
		convs.DELETE("/:id", h.Delete)
		convs.GET("/:id/messages", h.Messages)
	}
}

func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	conv, err := h.conversations.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Create accepts an optional body; an absent title gets the default.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req models.ConversationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	conv, err := h.conversations.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *ConversationHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.ConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.conversations.Update(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.conversations.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.conversations.Messages(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
