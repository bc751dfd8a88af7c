package util

import (
	"SocialSync/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderXRequestID = "X-Request-ID"

// TraceLogger 追踪中间件，生成或获取 trace_id 并存入 Gin 上下文
func TraceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先沿用上游（如 Nginx）传入的请求 ID
		traceID := c.GetHeader(HeaderXRequestID)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(ctxmeta.GinTraceIDKey, traceID)
		// 握手响应头也带上 trace_id，方便客户端反馈问题时定位
		c.Header(HeaderXRequestID, traceID)

		c.Next()
	}
}

// NewUUID 生成新的 UUID
func NewUUID() string {
	return uuid.New().String()
}
