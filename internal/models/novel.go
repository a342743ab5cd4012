package models

import "time"

// Novel is a writing project.
type Novel struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"size:1000"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Novel) TableName() string { return "novels" }

// Chapter belongs to a novel.
type Chapter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	NovelID   uint      `json:"novelId" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Chapter) TableName() string { return "chapters" }
