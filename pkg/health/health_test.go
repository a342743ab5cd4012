package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"novel-forge/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerCriticalComponentDown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := NewChecker(logger.Discard(), time.Minute)
	checker.RegisterDatabaseCheck(func(context.Context) error { return errors.New("connection refused") })
	checker.RegisterCheck("chat-pool", false, func(context.Context) (Status, string, error) {
		return StatusDegraded, "saturated", nil
	})

	checker.RunChecks(context.Background())

	status := checker.GetStatus()
	require.Contains(t, status, "database")
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)
	assert.Equal(t, StatusDegraded, status["chat-pool"].Status)
	assert.False(t, checker.IsSystemHealthy())

	engine := gin.New()
	engine.GET("/health", checker.Handler())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckerNonCriticalDownStaysHealthy(t *testing.T) {
	checker := NewChecker(logger.Discard(), time.Minute)
	checker.RegisterCheck("optional", false, func(context.Context) (Status, string, error) {
		return StatusDown, "gone", errors.New("gone")
	})

	checker.RunChecks(context.Background())
	assert.True(t, checker.IsSystemHealthy())
}
