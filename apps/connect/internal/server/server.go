package server

import (
	"SocialSync/apps/connect/internal/handler"
	"SocialSync/config"
	"SocialSync/consts"
	"SocialSync/pkg/metrics"
	"SocialSync/pkg/result"
	"SocialSync/pkg/util"
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Server 对 http.Server 的轻量封装。
// 这里集中管理启动和优雅关闭，避免调用方直接操作底层对象。
type Server struct {
	httpServer *http.Server
}

// NewRouter 构建 Gin 路由。
// 路由职责：
// - GET /health:  健康检查，供容器/探针调用；
// - GET /metrics: Prometheus 指标；
// - GET /ws:      WebSocket 接入入口。
func NewRouter(wsHandler *handler.WSHandler) *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(util.TraceLogger())

	r.GET("/health", func(c *gin.Context) {
		if wsHandler.Draining() {
			result.Fail(c, http.StatusServiceUnavailable, consts.CodeShuttingDown)
			return
		}
		result.Success(c, gin.H{
			"status":             "ok",
			"online_connections": wsHandler.Online(),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", wsHandler.ServeWS)
	return r
}

// New 构建 HTTP Server。
// 超时用于限制异常连接占用资源；WebSocket 升级后底层连接不再受这些超时约束。
func New(cfg config.ConnectConfig, wsHandler *handler.WSHandler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(wsHandler),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Start 启动 HTTP 监听。
// 正常优雅关闭时会返回 http.ErrServerClosed，调用方应将其视为正常退出。
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown 执行优雅停机。
// 调用方需要传入带超时的 ctx，以防止无限等待。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
