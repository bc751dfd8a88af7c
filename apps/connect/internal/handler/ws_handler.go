package handler

import (
	"SocialSync/apps/connect/internal/dispatch"
	"SocialSync/apps/connect/internal/manager"
	"SocialSync/apps/connect/internal/svc"
	"SocialSync/consts"
	"SocialSync/pkg/ctxmeta"
	"SocialSync/pkg/logger"
	"SocialSync/pkg/metrics"
	"SocialSync/pkg/util"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const closeFrameTimeout = time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 默认放开来源校验，方便本地多端调试（Web/Electron/移动端模拟器）。
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// RateLimit 每连接事件限流参数，Rate<=0 表示不限流。
type RateLimit struct {
	Rate  float64
	Burst int
}

// WSHandler 负责处理 /ws 接入请求。
// 职责边界：
// - 处理 Gin/HTTP 层参数、升级与握手拒绝；
// - 调用 svc 完成鉴权与帧解析；
// - 调用 manager 维护连接生命周期；
// - 把业务事件交给 dispatcher。
type WSHandler struct {
	connManager *manager.ConnectionManager
	connectSvc  *svc.ConnectService
	dispatcher  *dispatch.Dispatcher
	limit       RateLimit
}

// NewWSHandler 创建 WebSocket 入口处理器。
func NewWSHandler(
	connManager *manager.ConnectionManager,
	connectSvc *svc.ConnectService,
	dispatcher *dispatch.Dispatcher,
	limit RateLimit,
) *WSHandler {
	return &WSHandler{
		connManager: connManager,
		connectSvc:  connectSvc,
		dispatcher:  dispatcher,
		limit:       limit,
	}
}

// Online 当前在线连接数。
func (h *WSHandler) Online() int {
	return h.connManager.Count()
}

// Draining 服务是否已进入停机阶段。
func (h *WSHandler) Draining() bool {
	return h.connManager.Closed()
}

// ServeWS 处理 WebSocket 握手与接入。
// 执行流程：
// 1. 从 query token（或 Authorization: Bearer）读取凭证，并获取 client_ip；
// 2. 调用 connectSvc.Authenticate 做鉴权，失败时升级后立即发送关闭帧；
// 3. 构建连接级 context（注入 trace/user/conn/ip）；
// 4. 绑定身份后进入连接处理主循环。
func (h *WSHandler) ServeWS(c *gin.Context) {
	token := extractCredential(c)
	clientIP := c.ClientIP()

	connCtx := context.Background()
	if traceID := ctxmeta.TraceIDFromGin(c); traceID != "" {
		connCtx = ctxmeta.WithTraceID(connCtx, traceID)
	}
	connCtx = ctxmeta.WithClientIP(connCtx, clientIP)

	session, authErr := h.connectSvc.Authenticate(c.Request.Context(), token, clientIP)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败",
			logger.ErrorField("error", err),
		)
		return
	}

	if authErr != nil {
		h.refuse(connCtx, conn, authErr)
		return
	}

	connID := util.NextID()
	connCtx = ctxmeta.WithUserID(connCtx, session.UserID)
	connCtx = ctxmeta.WithConnID(connCtx, connID)

	h.handleConnection(connCtx, conn, connID, session)
}

// handleConnection 承载单个连接的完整生命周期。
// 身份在进入读循环之前绑定，读循环里收到的每一帧都已经过鉴权。
func (h *WSHandler) handleConnection(ctx context.Context, conn *websocket.Conn, connID string, session *svc.Session) {
	var limiter *rate.Limiter
	if h.limit.Rate > 0 {
		burst := h.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(h.limit.Rate), burst)
	}

	client := manager.NewClient(conn, connID, limiter)
	if err := client.Bind(session.UserID); err != nil {
		logger.Error(ctx, "连接身份绑定失败", logger.ErrorField("error", err))
		client.Close()
		return
	}
	if !h.connManager.Register(client) {
		logger.Warn(ctx, "服务正在关闭，拒绝新连接")
		client.Close()
		return
	}

	h.connectSvc.OnConnect(ctx, session)
	logger.Debug(ctx, "在线连接数", logger.Int("online_count", h.connManager.Count()))

	client.Run(ctx, func(raw []byte) {
		h.handleMessage(ctx, client, raw)
	}, func() {
		h.connManager.Unregister(client)
		h.connectSvc.OnDisconnect(ctx, session)
		logger.Debug(ctx, "在线连接数", logger.Int("online_count", h.connManager.Count()))
	})
}

// handleMessage 处理客户端上行帧。
// - heartbeat: 直接返回 heartbeat_ack；
// - 其余事件交给 dispatcher，未知事件由 dispatcher 忽略。
func (h *WSHandler) handleMessage(ctx context.Context, client *manager.Client, raw []byte) {
	envelope, err := h.connectSvc.ParseEnvelope(raw)
	if err != nil {
		h.sendErrorFrame(ctx, client, consts.CodeInvalidFrame)
		return
	}

	if envelope.Type == consts.EventHeartbeat {
		ack, marshalErr := h.connectSvc.MarshalEnvelope(consts.EventHeartbeatAck, nil)
		if marshalErr != nil {
			logger.Warn(ctx, "心跳应答序列化失败",
				logger.ErrorField("error", marshalErr),
			)
			return
		}
		if !client.Enqueue(ack) {
			client.Close()
		}
		return
	}

	h.dispatcher.Dispatch(ctx, client, envelope.Type, envelope.Data)
}

// sendErrorFrame 发送 ws 协议层错误帧。
// 发送失败通常表示连接不可写，此时主动关闭连接避免资源泄漏。
func (h *WSHandler) sendErrorFrame(ctx context.Context, client *manager.Client, code int) {
	payload, err := h.connectSvc.MarshalEnvelope(consts.EventError, svc.ErrorData{
		Code:    code,
		Message: consts.GetMessage(code),
	})
	if err != nil {
		logger.Warn(ctx, "错误帧序列化失败",
			logger.Int("code", code),
			logger.ErrorField("error", err),
		)
		return
	}
	if !client.Enqueue(payload) {
		client.Close()
	}
}

// refuse 通过 WebSocket 关闭帧拒绝连接。
// 升级只为送达 4001/4003 关闭码：连接从不进入读循环，也不注册到连接管理器，客户端的任何帧都不会被读取或分发。
func (h *WSHandler) refuse(ctx context.Context, conn *websocket.Conn, err error) {
	code, reason, label := consts.CloseInternalError, "internal error", "internal"
	switch {
	case errors.Is(err, svc.ErrMissingCredential):
		code, reason, label = consts.CloseMissingCredential, "credential required", "missing"
	case errors.Is(err, svc.ErrInvalidCredential):
		code, reason, label = consts.CloseInvalidCredential, "credential invalid", "invalid"
	}
	metrics.AuthRefusals.WithLabelValues(label).Inc()
	logger.Info(ctx, "连接鉴权失败，已拒绝",
		logger.Int("close_code", code),
		logger.String("reason", reason),
	)

	msg := websocket.FormatCloseMessage(code, reason)
	if writeErr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameTimeout)); writeErr != nil {
		logger.Debug(ctx, "关闭帧发送失败", logger.ErrorField("error", writeErr))
	}
	_ = conn.Close()
}

// extractCredential 优先读取 query token，缺省时回退到 Authorization: Bearer。
func extractCredential(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
