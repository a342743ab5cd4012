package validator

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "novel-forge/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaPath = "../../api/openapi.yaml"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator(schemaPath)
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.Use(v.Middleware())
	echo := func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	}
	r.POST("/api/novels", echo)
	r.POST("/api/ai/chat", echo)
	r.GET("/api/novels", func(c *gin.Context) { c.String(http.StatusOK, "list") })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewOpenAPIValidatorMissingFile(t *testing.T) {
	_, err := NewOpenAPIValidator("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestMiddlewareRejectsInvalidBody(t *testing.T) {
	r := newEngine(t)

	w := do(r, http.MethodPost, "/api/novels", `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeInvalidRequest)

	w = do(r, http.MethodPost, "/api/novels", `{"title":"`+strings.Repeat("x", 256)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiddlewarePassesValidBodyThrough(t *testing.T) {
	r := newEngine(t)

	body := `{"prompt":"Hello","conversationId":null}`
	w := do(r, http.MethodPost, "/api/ai/chat", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())
}

func TestMiddlewareIgnoresUndocumentedRoutes(t *testing.T) {
	r := newEngine(t)

	w := do(r, http.MethodGet, "/api/novels", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "list", w.Body.String())
}
