package middleware

import (
	"fmt"
	"time"

	"livecart/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware wraps every request in a span carrying the room and user
// the request acted on, when known.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.remote_addr", c.ClientIP()),
		)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		// Identity and room are known only after the handlers ran.
		if roomID := c.Param("id"); roomID != "" {
			span.SetAttributes(attribute.String("livecart.room_id", roomID))
		}
		if v, ok := c.Get("user_id"); ok {
			span.SetAttributes(attribute.String("livecart.user_id", fmt.Sprintf("%v", v)))
		}

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
		)
		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
