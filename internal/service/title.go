package service

import (
	"unicode/utf8"

	"novel-forge/backend/internal/models"
)

const (
	titleMaxRunes = 20
	titleEllipsis = "..."
)

// DeriveTitle names a conversation after its first prompt.
func DeriveTitle(prompt string) string {
	if prompt == "" {
		return models.DefaultConversationTitle
	}
	if utf8.RuneCountInString(prompt) <= titleMaxRunes {
		return prompt
	}
	return string([]rune(prompt)[:titleMaxRunes]) + titleEllipsis
}
