// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"mattepass-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingMiddleware logs each request and records its latency
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.ClientIP()),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}

		switch {
		case status >= 500:
			logger.Error("request completed", fields...)
		case status >= 400:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
