package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trentora-system/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with a unique ID and exposes a
// request-scoped logger through the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set("logger", logger.Get().With(zap.String("request_id", requestID)))

		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or the global one.
func GetLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Get("logger"); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return logger.Get()
}
