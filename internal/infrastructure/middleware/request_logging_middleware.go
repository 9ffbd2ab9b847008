package middleware

import (
	"fmt"
	"time"

	"livecart/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLoggingMiddleware logs every HTTP request with a generated request
// id. The id travels in the X-Request-ID response header so clients can quote
// it when reporting problems.
func RequestLoggingMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		ctx = c.Request.Context()
		if userID, exists := c.Get("user_id"); exists {
			ctx = logger.WithUserID(ctx, fmt.Sprintf("%v", userID))
		}
		if roomID := c.Param("id"); roomID != "" {
			ctx = logger.WithRoomID(ctx, roomID)
		}

		cl.LogRequest(ctx, c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
