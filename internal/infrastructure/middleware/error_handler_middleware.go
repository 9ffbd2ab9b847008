package middleware

import (
	stderrors "errors"
	"net/http"

	"livecart/internal/core/domain"
	"livecart/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sentinelStatus maps domain sentinels to HTTP responses so handlers can
// push repository errors through c.Error without wrapping each one in an
// AppError first.
func sentinelStatus(err error) (int, errors.ErrorCode, bool) {
	switch {
	case stderrors.Is(err, domain.ErrRoomNotFound),
		stderrors.Is(err, domain.ErrProductNotFound),
		stderrors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errors.ErrCodeNotFound, true
	case stderrors.Is(err, domain.ErrRoomEnded):
		return http.StatusGone, errors.ErrCodeRoomEnded, true
	case stderrors.Is(err, domain.ErrRoomExists):
		return http.StatusConflict, errors.ErrCodeConflict, true
	}
	return 0, "", false
}

// ErrorHandlerMiddleware turns errors attached to the gin context into JSON
// responses: AppError keeps its own code and status, bare domain sentinels
// get a mapped status, anything else becomes a 500.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if appErr := errors.GetAppError(err); appErr != nil {
			logger.Errorw("request failed",
				"code", appErr.Code,
				"message", appErr.Message,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"context", appErr.Context,
			)
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
				"details": appErr.Context,
			})
			return
		}

		if status, code, ok := sentinelStatus(err); ok {
			logger.Infow("request rejected",
				"error", err.Error(),
				"status", status,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(status, gin.H{
				"error":   string(code),
				"message": err.Error(),
			})
			return
		}

		logger.Errorw("unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(errors.ErrCodeInternal),
			"message": "internal server error",
		})
	}
}

// RecoveryMiddleware converts panics into 500 responses instead of dropping
// the connection.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
