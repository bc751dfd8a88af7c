package dispatch

import (
	"SocialSync/apps/connect/internal/svc"
	"SocialSync/consts"
	"SocialSync/pkg/async"
	"SocialSync/pkg/ctxmeta"
	"SocialSync/pkg/logger"
	"SocialSync/pkg/metrics"
	"SocialSync/pkg/util"
	"context"
	"encoding/json"
	"runtime/debug"
	"sync"
	"time"
)

// Conn 事件分发所需的连接能力
type Conn interface {
	ID() string
	UserID() string
	Allow() bool
	Enqueue(msg []byte) bool
}

// Encoder 下行帧编码
type Encoder func(event string, data any) ([]byte, error)

// Runner 任务执行器，默认投递到全局协程池
type Runner func(ctx context.Context, task func(ctx context.Context), timeout time.Duration)

// HandlerFunc 事件处理函数；返回的 reply 非 nil 且路由配置了下行事件时回写给当前连接
type HandlerFunc func(ctx context.Context, conn Conn, payload json.RawMessage) (reply any, err error)

type route struct {
	reply   string
	handler HandlerFunc
}

// Dispatcher 把已鉴权连接上的具名事件路由到处理函数。
// 每个事件作为独立任务执行，同一连接上的事件可能并发处理。
type Dispatcher struct {
	mu      sync.RWMutex
	routes  map[string]route
	encode  Encoder
	run     Runner
	timeout time.Duration
}

// NewDispatcher 创建分发器；timeout 为单个事件的处理超时
func NewDispatcher(encode Encoder, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		routes:  make(map[string]route),
		encode:  encode,
		run:     async.RunSafe,
		timeout: timeout,
	}
}

// SetRunner 替换任务执行器
func (d *Dispatcher) SetRunner(run Runner) {
	if run != nil {
		d.run = run
	}
}

// Handle 注册事件处理函数；replyEvent 为空表示单向命令，不回写
func (d *Dispatcher) Handle(event, replyEvent string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[event] = route{reply: replyEvent, handler: handler}
}

// Dispatch 分发一个上行事件
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, event string, payload json.RawMessage) {
	userID := conn.UserID()
	if userID == "" {
		metrics.EventsTotal.WithLabelValues(event, metrics.ResultDropped).Inc()
		logger.Warn(ctx, "连接未绑定身份，丢弃事件",
			logger.String("conn_id", conn.ID()),
			logger.String("event", event),
		)
		return
	}

	d.mu.RLock()
	r, ok := d.routes[event]
	d.mu.RUnlock()
	if !ok {
		metrics.EventsTotal.WithLabelValues("unknown", metrics.ResultIgnored).Inc()
		logger.Debug(ctx, "忽略未知事件", logger.String("event", event))
		return
	}

	if !conn.Allow() {
		metrics.EventsTotal.WithLabelValues(event, metrics.ResultLimited).Inc()
		d.emitError(ctx, conn, consts.CodeTooManyRequests)
		return
	}

	ctx = ctxmeta.WithUserID(ctx, userID)
	ctx = ctxmeta.WithConnID(ctx, conn.ID())
	if ctxmeta.TraceID(ctx) == "" {
		ctx = ctxmeta.WithTraceID(ctx, util.NewUUID())
	}

	d.run(ctx, func(ctx context.Context) {
		d.invoke(ctx, conn, event, r, payload)
	}, d.timeout)
}

// invoke 执行处理函数并回写结果；错误与 panic 只记录，不影响连接
func (d *Dispatcher) invoke(ctx context.Context, conn Conn, event string, r route, payload json.RawMessage) {
	start := time.Now()
	result := metrics.ResultOK
	defer func() {
		if p := recover(); p != nil {
			result = metrics.ResultError
			logger.Error(ctx, "事件处理 panic",
				logger.String("event", event),
				logger.Any("panic", p),
				logger.String("stack", string(debug.Stack())),
			)
		}
		metrics.EventsTotal.WithLabelValues(event, result).Inc()
		metrics.EventDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
	}()

	reply, err := r.handler(ctx, conn, payload)
	if err != nil {
		result = metrics.ResultError
		logger.Error(ctx, "事件处理失败",
			logger.String("event", event),
			logger.ErrorField("error", err),
		)
		return
	}
	if r.reply == "" || reply == nil {
		return
	}

	d.emit(ctx, conn, r.reply, reply)
}

func (d *Dispatcher) emit(ctx context.Context, conn Conn, event string, data any) {
	raw, err := d.encode(event, data)
	if err != nil {
		logger.Error(ctx, "下行帧编码失败",
			logger.String("event", event),
			logger.ErrorField("error", err),
		)
		return
	}
	if !conn.Enqueue(raw) {
		logger.Debug(ctx, "连接已关闭或写队列已满，丢弃响应",
			logger.String("event", event),
		)
	}
}

func (d *Dispatcher) emitError(ctx context.Context, conn Conn, code int) {
	d.emit(ctx, conn, consts.EventError, svc.ErrorData{
		Code:    code,
		Message: consts.GetMessage(code),
	})
}
