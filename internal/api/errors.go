package api

import (
	"net/http"

	"agritrust-workers/internal/common/errors"

	"github.com/gin-gonic/gin"
)

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeApplicationValidationFailed,
		errors.ErrCodeInvalidRiskFilter,
		errors.ErrCodeInputParsingFailed:
		return http.StatusBadRequest
	case errors.ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case errors.ErrCodeModelUnavailable, errors.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(c *gin.Context, stdErr *errors.StandardError) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    stdErr.Code,
			"message": stdErr.Message,
			"details": stdErr.Details,
		},
		"requestId": c.GetString(ctxRequestID),
	}
}

func writeError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)
	_ = c.Error(err)
	c.JSON(statusFor(stdErr.Code), errorBody(c, stdErr))
}

func abortWithError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)
	c.AbortWithStatusJSON(statusFor(stdErr.Code), errorBody(c, stdErr))
}
