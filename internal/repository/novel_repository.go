package repository

import (
	"context"

	"novel-forge/backend/internal/models"

	"gorm.io/gorm"
)

type GormNovelRepository struct {
	db *gorm.DB
}

func NewGormNovelRepository(db *gorm.DB) *GormNovelRepository {
	return &GormNovelRepository{db: db}
}

func (r *GormNovelRepository) List(ctx context.Context) ([]models.Novel, error) {
	var novels []models.Novel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&novels).Error
	return novels, err
}

func (r *GormNovelRepository) GetByID(ctx context.Context, id uint) (*models.Novel, error) {
	var novel models.Novel
	if err := r.db.WithContext(ctx).First(&novel, id).Error; err != nil {
		return nil, translate(err)
	}
	return &novel, nil
}

func (r *GormNovelRepository) Create(ctx context.Context, novel *models.Novel) error {
	return r.db.WithContext(ctx).Create(novel).Error
}

func (r *GormNovelRepository) Update(ctx context.Context, novel *models.Novel) error {
	return r.db.WithContext(ctx).Save(novel).Error
}

func (r *GormNovelRepository) Delete(ctx context.Context, id uint) error {
	return rowsOrNotFound(r.db.WithContext(ctx).Delete(&models.Novel{}, id))
}

type GormChapterRepository struct {
	db *gorm.DB
}

func NewGormChapterRepository(db *gorm.DB) *GormChapterRepository {
	return &GormChapterRepository{db: db}
}

func (r *GormChapterRepository) ListByNovel(ctx context.Context, novelID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.WithContext(ctx).
		Where("novel_id = ?", novelID).
		Order("id ASC").
		Find(&chapters).Error
	return chapters, err
}

func (r *GormChapterRepository) GetByID(ctx context.Context, id uint) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := r.db.WithContext(ctx).First(&chapter, id).Error; err != nil {
		return nil, translate(err)
	}
	return &chapter, nil
}

func (r *GormChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	return r.db.WithContext(ctx).Create(chapter).Error
}

func (r *GormChapterRepository) Update(ctx context.Context, chapter *models.Chapter) error {
	return r.db.WithContext(ctx).Save(chapter).Error
}

func (r *GormChapterRepository) Delete(ctx context.Context, id uint) error {
	return rowsOrNotFound(r.db.WithContext(ctx).Delete(&models.Chapter{}, id))
}
