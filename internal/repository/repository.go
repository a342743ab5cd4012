// Package repository persists novels, chapters, conversations and messages.
package repository

import (
	"context"
	"errors"

	"novel-forge/backend/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ConversationRepository stores conversation metadata.
type ConversationRepository interface {
	Create(ctx context.Context, title string) (*models.Conversation, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	// Touch refreshes updated_at.
	Touch(ctx context.Context, id uint) error
	// List returns conversations, most recently updated first.
	List(ctx context.Context) ([]models.Conversation, error)
	UpdateTitle(ctx context.Context, id uint, title string) (*models.Conversation, error)
	// Delete removes the conversation together with its messages.
	Delete(ctx context.Context, id uint) error
}

// MessageRepository is the append-only log of chat turns.
type MessageRepository interface {
	Append(ctx context.Context, conversationID uint, role models.Role, content string) (*models.Message, error)
	// ListByConversation returns messages in creation order.
	ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error)
	DeleteByConversation(ctx context.Context, conversationID uint) error
}

type NovelRepository interface {
	List(ctx context.Context) ([]models.Novel, error)
	GetByID(ctx context.Context, id uint) (*models.Novel, error)
	Create(ctx context.Context, novel *models.Novel) error
	Update(ctx context.Context, novel *models.Novel) error
	Delete(ctx context.Context, id uint) error
}

type ChapterRepository interface {
	ListByNovel(ctx context.Context, novelID uint) ([]models.Chapter, error)
	GetByID(ctx context.Context, id uint) (*models.Chapter, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	Update(ctx context.Context, chapter *models.Chapter) error
	Delete(ctx context.Context, id uint) error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func rowsOrNotFound(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
