package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader     = "X-Request-ID"
	requestIDContextKey = "__request_id"
)

// RequestID 为每个请求分配或透传 X-Request-ID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (a *API) requestLogger(c *gin.Context) *zap.Logger {
	logger := a.logger.With(zap.String("path", c.FullPath()))
	if id := c.GetString(requestIDContextKey); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	return logger
}
