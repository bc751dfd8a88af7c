// Package ctxmeta 统一管理在 context 中透传的请求元数据（trace_id / user_id / conn_id / client_ip）。
package ctxmeta

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	userIDKey   ctxKey = "user_id"
	connIDKey   ctxKey = "conn_id"
	clientIPKey ctxKey = "client_ip"
)

// GinTraceIDKey 为 util.TraceLogger 写入 gin.Context 时使用的 key。
const GinTraceIDKey = "trace_id"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceID(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

func ConnID(ctx context.Context) string {
	return stringValue(ctx, connIDKey)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// TraceIDFromGin 读取 TraceLogger 中间件放入 gin 上下文的 trace_id。
func TraceIDFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	v, ok := c.Get(GinTraceIDKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Detach 复制元数据到一个不受父 ctx 取消影响的新 ctx。
// 连接关闭不应取消已发出的存储操作，异步任务统一用它构造根上下文。
func Detach(parent context.Context) context.Context {
	ctx := context.Background()
	if parent == nil {
		return ctx
	}
	if v := TraceID(parent); v != "" {
		ctx = WithTraceID(ctx, v)
	}
	if v := UserID(parent); v != "" {
		ctx = WithUserID(ctx, v)
	}
	if v := ConnID(parent); v != "" {
		ctx = WithConnID(ctx, v)
	}
	if v := ClientIP(parent); v != "" {
		ctx = WithClientIP(ctx, v)
	}
	return ctx
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
