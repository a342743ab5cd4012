package repository

import (
	"context"
	"time"

	"novel-forge/backend/internal/models"

	"gorm.io/gorm"
)

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Create(ctx context.Context, title string) (*models.Conversation, error) {
	conv := &models.Conversation{Title: title}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *GormConversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) Touch(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	return rowsOrNotFound(res)
}

func (r *GormConversationRepository) List(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).Order("updated_at DESC, id DESC").Find(&convs).Error
	return convs, err
}

func (r *GormConversationRepository) UpdateTitle(ctx context.Context, id uint, title string) (*models.Conversation, error) {
	conv, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(conv).Update("title", title).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *GormConversationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewGormMessageRepository(tx).DeleteByConversation(ctx, id); err != nil {
			return err
		}
		return rowsOrNotFound(tx.Delete(&models.Conversation{}, id))
	})
}
