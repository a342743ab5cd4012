package api

import (
	"net/http"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type NovelHandler struct {
	novels *service.NovelService
}

func NewNovelHandler(novels *service.NovelService) *NovelHandler {
	return &NovelHandler{novels: novels}
}

func (h *NovelHandler) RegisterRoutes(api *gin.RouterGroup) {
	novels := api.Group("/novels")
	{
		novels.GET("", h.ListNovels)
		novels.POST("", h.CreateNovel)
		novels.GET("/:id", h.GetNovel)
		novels.PUT("/:id", h.UpdateNovel)
		novels.DELETE("/:id", h.DeleteNovel)
		novels.GET("/:id/chapters", h.ListChapters)
		novels.POST("/:id/chapters", h.CreateChapter)
	}

	chapters := api.Group("/chapters")
	{
		chapters.GET("/:id", h.GetChapter)
		chapters.PUT("/:id", h.UpdateChapter)
		chapters.DELETE("/:id", h.DeleteChapter)
	}
}

func (h *NovelHandler) ListNovels(c *gin.Context) {
	novels, err := h.novels.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, novels)
}

func (h *NovelHandler) GetNovel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	novel, err := h.novels.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, novel)
}

func (h *NovelHandler) CreateNovel(c *gin.Context) {
	var req models.NovelRequest
	if !bindJSON(c, &req) {
		return
	}
	novel, err := h.novels.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, novel)
}

func (h *NovelHandler) UpdateNovel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.NovelRequest
	if !bindJSON(c, &req) {
		return
	}
	novel, err := h.novels.Update(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, novel)
}

func (h *NovelHandler) DeleteNovel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.novels.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NovelHandler) ListChapters(c *gin.Context) {
	novelID, ok := idParam(c, "id")
	if !ok {
		return
	}
	chapters, err := h.novels.ListChapters(c.Request.Context(), novelID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

func (h *NovelHandler) CreateChapter(c *gin.Context) {
	novelID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.ChapterRequest
	if !bindJSON(c, &req) {
		return
	}
	chapter, err := h.novels.CreateChapter(c.Request.Context(), novelID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

func (h *NovelHandler) GetChapter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	chapter, err := h.novels.GetChapter(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

func (h *NovelHandler) UpdateChapter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.ChapterRequest
	if !bindJSON(c, &req) {
		return
	}
	chapter, err := h.novels.UpdateChapter(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

func (h *NovelHandler) DeleteChapter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.novels.DeleteChapter(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
