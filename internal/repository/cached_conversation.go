package repository

import (
	"context"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/pkg/cache"
)

// CachedConversationRepository serves GetByID from an in-process cache.
// Every write through it invalidates the cached entry.
type CachedConversationRepository struct {
	ConversationRepository
	cache *cache.Cache[uint, models.Conversation]
}

func NewCachedConversationRepository(next ConversationRepository, c *cache.Cache[uint, models.Conversation]) *CachedConversationRepository {
	return &CachedConversationRepository{ConversationRepository: next, cache: c}
}

func (r *CachedConversationRepository) Create(ctx context.Context, title string) (*models.Conversation, error) {
	conv, err := r.ConversationRepository.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	r.cache.Set(conv.ID, *conv)
	return conv, nil
}

func (r *CachedConversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	if conv, ok := r.cache.Get(id); ok {
		return &conv, nil
	}

	conv, err := r.ConversationRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(id, *conv)
	return conv, nil
}

func (r *CachedConversationRepository) Touch(ctx context.Context, id uint) error {
	r.cache.Delete(id)
	return r.ConversationRepository.Touch(ctx, id)
}

func (r *CachedConversationRepository) UpdateTitle(ctx context.Context, id uint, title string) (*models.Conversation, error) {
	r.cache.Delete(id)
	return r.ConversationRepository.UpdateTitle(ctx, id, title)
}

func (r *CachedConversationRepository) Delete(ctx context.Context, id uint) error {
	r.cache.Delete(id)
	return r.ConversationRepository.Delete(ctx, id)
}
