package service

import (
	"context"
	"fmt"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/repository"
	apperrors "novel-forge/backend/pkg/errors"
)

// ConversationService manages conversations outside of chat turns.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewConversationService(conversations repository.ConversationRepository, messages repository.MessageRepository) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages}
}

func conversationNotFound(id uint) *apperrors.AppError {
	return apperrors.NewNotFoundError(apperrors.CodeConversationNotFound, fmt.Sprintf("Conversation %d not found", id))
}

func (s *ConversationService) List(ctx context.Context) ([]models.Conversation, error) {
	convs, err := s.conversations.List(ctx)
	if err != nil {
		return nil, storageError(err, nil)
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *ConversationService) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, conversationNotFound(id))
	}
	return conv, nil
}

// Create starts an empty conversation. A missing title gets the default.
func (s *ConversationService) Create(ctx context.Context, req models.ConversationRequest) (*models.Conversation, error) {
	title := models.DefaultConversationTitle
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}

	conv, err := s.conversations.Create(ctx, title)
	if err != nil {
		return nil, storageError(err, nil)
	}
	return conv, nil
}

// Update changes the title when one is supplied.
func (s *ConversationService) Update(ctx context.Context, id uint, req models.ConversationRequest) (*models.Conversation, error) {
	if req.Title == nil {
		return s.Get(ctx, id)
	}

	conv, err := s.conversations.UpdateTitle(ctx, id, *req.Title)
	if err != nil {
		return nil, storageError(err, conversationNotFound(id))
	}
	return conv, nil
}

func (s *ConversationService) Delete(ctx context.Context, id uint) error {
	if err := s.conversations.Delete(ctx, id); err != nil {
		return storageError(err, conversationNotFound(id))
	}
	return nil
}

// Messages returns the conversation history in creation order.
func (s *ConversationService) Messages(ctx context.Context, id uint) ([]models.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, storageError(err, nil)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}
