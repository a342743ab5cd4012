package service

import (
	"context"
	"errors"
	"fmt"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/repository"
	apperrors "novel-forge/backend/pkg/errors"
)

type NovelService struct {
	novels   repository.NovelRepository
	chapters repository.ChapterRepository
}

func NewNovelService(novels repository.NovelRepository, chapters repository.ChapterRepository) *NovelService {
	return &NovelService{novels: novels, chapters: chapters}
}

func novelNotFound(id uint) *apperrors.AppError {
	return apperrors.NewNotFoundError(apperrors.CodeNovelNotFound, fmt.Sprintf("Novel %d not found", id))
}

func chapterNotFound(id uint) *apperrors.AppError {
	return apperrors.NewNotFoundError(apperrors.CodeChapterNotFound, fmt.Sprintf("Chapter %d not found", id))
}

// storageError turns a repository error into the error returned to handlers.
func storageError(err error, notFound *apperrors.AppError) error {
	if notFound != nil && errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperrors.NewInternalServerError(apperrors.CodePersistence, "Storage operation failed").Wrap(err)
}

func (s *NovelService) List(ctx context.Context) ([]models.Novel, error) {
	novels, err := s.novels.List(ctx)
	if err != nil {
		return nil, storageError(err, nil)
	}
	return novels, nil
}

func (s *NovelService) Get(ctx context.Context, id uint) (*models.Novel, error) {
	novel, err := s.novels.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, novelNotFound(id))
	}
	return novel, nil
}

func (s *NovelService) Create(ctx context.Context, req models.NovelRequest) (*models.Novel, error) {
	novel := &models.Novel{Title: req.Title, Description: req.Description}
	if err := s.novels.Create(ctx, novel); err != nil {
		return nil, storageError(err, nil)
	}
	return novel, nil
}

func (s *NovelService) Update(ctx context.Context, id uint, req models.NovelRequest) (*models.Novel, error) {
	novel, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	novel.Title = req.Title
	novel.Description = req.Description
	if err := s.novels.Update(ctx, novel); err != nil {
		return nil, storageError(err, novelNotFound(id))
	}
	return novel, nil
}

func (s *NovelService) Delete(ctx context.Context, id uint) error {
	if err := s.novels.Delete(ctx, id); err != nil {
		return storageError(err, novelNotFound(id))
	}
	return nil
}

func (s *NovelService) ListChapters(ctx context.Context, novelID uint) ([]models.Chapter, error) {
	if _, err := s.Get(ctx, novelID); err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByNovel(ctx, novelID)
	if err != nil {
		return nil, storageError(err, nil)
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	return chapters, nil
}

func (s *NovelService) GetChapter(ctx context.Context, id uint) (*models.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, chapterNotFound(id))
	}
	return chapter, nil
}

func (s *NovelService) CreateChapter(ctx context.Context, novelID uint, req models.ChapterRequest) (*models.Chapter, error) {
	if _, err := s.Get(ctx, novelID); err != nil {
		return nil, err
	}

	chapter := &models.Chapter{NovelID: novelID, Title: req.Title, Content: req.Content}
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return nil, storageError(err, novelNotFound(novelID))
	}
	return chapter, nil
}

func (s *NovelService) UpdateChapter(ctx context.Context, id uint, req models.ChapterRequest) (*models.Chapter, error) {
	chapter, err := s.GetChapter(ctx, id)
	if err != nil {
		return nil, err
	}

	chapter.Title = req.Title
	chapter.Content = req.Content
	if err := s.chapters.Update(ctx, chapter); err != nil {
		return nil, storageError(err, chapterNotFound(id))
	}
	return chapter, nil
}

func (s *NovelService) DeleteChapter(ctx context.Context, id uint) error {
	if err := s.chapters.Delete(ctx, id); err != nil {
		return storageError(err, chapterNotFound(id))
	}
	return nil
}
