package models

import "time"

// DefaultConversationTitle is used when a conversation starts without a prompt.
const DefaultConversationTitle = "New Conversation"

// Conversation is a titled thread of messages.
type Conversation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }
