// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"mattepass-service/internal/metrics"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500 and counts it per route.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			metrics.IncHTTPPanic(c.FullPath())
			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.ByteString("stack", debug.Stack()),
			}
			if userID, ok := GetUserID(c); ok {
				fields = append(fields, zap.Int64("user_id", userID))
			}
			logger.Error("panic recovered", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, "internal server error", nil)
		}()
		c.Next()
	}
}
