package di

import (
	"context"
	"testing"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/pkg/config"
	"novel-forge/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("AI_API_BASE_URL", "http://127.0.0.1:1/v1")
	t.Setenv("AI_MODEL", "test-model")
	t.Setenv("METRICS_ENABLED", "false")
	cfg, err := config.Parse()
	require.NoError(t, err)
	return cfg
}

func TestNewWithMemoryDriver(t *testing.T) {
	c, err := New(context.Background(), memoryConfig(t), logger.Discard())
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	require.NotNil(t, c.ChatService)
	assert.Equal(t, "test-model", c.AI.Model())

	novel, err := c.NovelService.Create(context.Background(), models.NovelRequest{Title: "Draft"})
	require.NoError(t, err)
	assert.NotZero(t, novel.ID)

	c.Health.RunChecks(context.Background())
	assert.True(t, c.Health.IsSystemHealthy())
	assert.Contains(t, c.Health.GetStatus(), "chat_pool")
}

func TestNewRejectsMissingAIConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.AI.Model = ""
	_, err := New(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Database.Driver = "sqlite"
	_, err := New(context.Background(), cfg, logger.Discard())
	assert.ErrorContains(t, err, "unknown DB_DRIVER")
}
