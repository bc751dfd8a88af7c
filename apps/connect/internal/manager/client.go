package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	defaultSendQueueSize = 64
	wsWriteTimeout       = 5 * time.Second
	maxInboundFrameSize  = 64 * 1024
)

// ErrAlreadyBound 连接身份只能绑定一次。
var ErrAlreadyBound = errors.New("connection identity already bound")

// MessageHandler 定义上行消息回调。
// 参数 raw 为客户端原始二进制载荷（通常是 JSON 编码后的字节）。
type MessageHandler func(raw []byte)

// CloseHandler 定义连接关闭回调。
// 用于在 read/write 循环退出后执行清理逻辑（例如从 manager 注销）。
type CloseHandler func()

// Client 封装单条 WebSocket 连接。
// 设计要点：
// - send 队列用于削峰，避免业务 goroutine 直接阻塞在网络写；
// - done 用于统一关闭信号，读写循环都监听该信号退出；
// - once 保证 Close 幂等，避免重复 close channel/panic；
// - userID 只写一次，绑定后整个生命周期不可变。
type Client struct {
	id      string
	conn    *websocket.Conn
	userID  atomic.Pointer[string]
	limiter *rate.Limiter
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

// NewClient 创建连接包装对象。limiter 为 nil 表示不限流。
func NewClient(conn *websocket.Conn, id string, limiter *rate.Limiter) *Client {
	if conn != nil {
		conn.SetReadLimit(maxInboundFrameSize)
	}
	return &Client{
		id:      id,
		conn:    conn,
		limiter: limiter,
		send:    make(chan []byte, defaultSendQueueSize),
		done:    make(chan struct{}),
	}
}

// ID 返回连接 ID（雪花算法生成）。
func (c *Client) ID() string {
	return c.id
}

// Bind 绑定连接身份，重复绑定返回 ErrAlreadyBound。
func (c *Client) Bind(userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if !c.userID.CompareAndSwap(nil, &userID) {
		return ErrAlreadyBound
	}
	return nil
}

// UserID 返回已绑定的用户 ID，未绑定时为空串。
func (c *Client) UserID() string {
	if p := c.userID.Load(); p != nil {
		return *p
	}
	return ""
}

// Allow 消耗一个事件令牌。
func (c *Client) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// Done 返回连接关闭信号通道。
// 外部可通过监听该通道感知连接生命周期结束。
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Enqueue 将待发送消息投递到写队列。
// 返回值语义：
// - true：已成功入队；
// - false：连接已关闭或队列已满（迟到的响应直接丢弃）。
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	cloned := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return false
	case c.send <- cloned:
		return true
	default:
		return false
	}
}

// Run 启动读写循环并阻塞等待 readLoop 结束。
// 行为说明：
// - writeLoop 在独立 goroutine 中运行；
// - readLoop 在当前 goroutine 运行，通常由其错误/断连触发整体退出；
// - 退出时保证调用 Close 和 onClose，确保资源回收。
func (c *Client) Run(ctx context.Context, onMessage MessageHandler, onClose CloseHandler) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop(ctx)
	c.readLoop(ctx, onMessage)
}

// Close 幂等关闭连接。
// 关闭顺序：
// 1. 关闭 done 信号，通知读写循环退出；
// 2. 关闭底层 websocket 连接释放网络资源。
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readLoop 持续读取客户端上行帧并交由 onMessage 处理。
// 退出条件：ctx cancel、连接关闭信号、网络读错误。
func (c *Client) readLoop(ctx context.Context, onMessage MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if onMessage != nil {
			onMessage(raw)
		}
	}
}

// writeLoop 持续从 send 队列取消息写入客户端。
// 每次写操作设置超时，避免慢连接长期占用写协程。
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}
