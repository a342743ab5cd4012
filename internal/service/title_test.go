package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"empty", "", "New Conversation"},
		{"short", "Hello", "Hello"},
		{"exactly twenty", "12345678901234567890", "12345678901234567890"},
		{"long", "123456789012345678901", "12345678901234567890..."},
		{"multibyte", "日本語の小説を書きたいのですが手伝ってくれますか", "日本語の小説を書きたいのですが手伝ってく..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.prompt))
		})
	}
}
