package api

import (
	"strconv"

	apperrors "novel-forge/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// idParam parses a positive numeric path parameter. On failure the error is
// recorded on the context and ok is false.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "Invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "Invalid request body").
			WithDetails(err.Error()).Wrap(err))
		return false
	}
	return true
}
