package service

import (
	"context"
	"net/http"
	"testing"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/repository"
	apperrors "novel-forge/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNovelServiceChapters(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewNovelService(store.Novels(), store.Chapters())

	_, err := svc.CreateChapter(ctx, 7, models.ChapterRequest{Title: "Orphan"})
	assert.Equal(t, apperrors.CodeNovelNotFound, apperrors.GetErrorCode(err))

	novel, err := svc.Create(ctx, models.NovelRequest{Title: "Dune", Description: "Sand"})
	require.NoError(t, err)

	ch, err := svc.CreateChapter(ctx, novel.ID, models.ChapterRequest{Title: "One", Content: "It begins"})
	require.NoError(t, err)
	assert.Equal(t, novel.ID, ch.NovelID)

	updated, err := svc.UpdateChapter(ctx, ch.ID, models.ChapterRequest{Title: "One (rev)", Content: "It begins again"})
	require.NoError(t, err)
	assert.Equal(t, "One (rev)", updated.Title)

	list, err := svc.ListChapters(ctx, novel.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteChapter(ctx, ch.ID))
	_, err = svc.GetChapter(ctx, ch.ID)
	assert.Equal(t, http.StatusNotFound, apperrors.GetStatusCode(err))
	assert.Equal(t, apperrors.CodeChapterNotFound, apperrors.GetErrorCode(err))

	require.NoError(t, svc.Delete(ctx, novel.ID))
	_, err = svc.Get(ctx, novel.ID)
	assert.Equal(t, apperrors.CodeNovelNotFound, apperrors.GetErrorCode(err))
}

func TestConversationService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewConversationService(store.Conversations(), store.Messages())

	conv, err := svc.Create(ctx, models.ConversationRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationTitle, conv.Title)

	title := "Worldbuilding"
	renamed, err := svc.Update(ctx, conv.ID, models.ConversationRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, renamed.Title)

	msgs, err := svc.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	require.NoError(t, svc.Delete(ctx, conv.ID))
	_, err = svc.Messages(ctx, conv.ID)
	assert.Equal(t, apperrors.CodeConversationNotFound, apperrors.GetErrorCode(err))
	assert.Equal(t, apperrors.CodeConversationNotFound, apperrors.GetErrorCode(svc.Delete(ctx, conv.ID)))
}
