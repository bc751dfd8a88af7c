package svc

import (
	"SocialSync/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMissingCredential 表示握手中没有携带凭证。
	ErrMissingCredential = errors.New("credential is required")
	// ErrInvalidCredential 表示凭证非法、已过期或已被吊销。
	ErrInvalidCredential = errors.New("credential is invalid")
)

// Session 保存连接鉴权后的身份信息。
// 该结构会在整个连接生命周期中复用，避免重复解析凭证。
type Session struct {
	UserID   string
	Email    string
	ClientIP string
}

// Envelope 定义 WebSocket 通用消息包格式。
// 约定：
// - Type: 事件名（如 heartbeat/get-chats）；
// - Data: 事件负载（由上层按 Type 再解析）。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData 定义 type=error 时的 data 结构。
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConnectService 承载 connect 的握手鉴权与帧编解码。
type ConnectService struct {
	verifier      IdentityVerifier
	verifyTimeout time.Duration
}

// NewConnectService 创建业务服务实例。
func NewConnectService(verifier IdentityVerifier, verifyTimeout time.Duration) *ConnectService {
	return &ConnectService{verifier: verifier, verifyTimeout: verifyTimeout}
}

// Authenticate 校验握手凭证。
// 校验流程：
// 1. 凭证为空返回 ErrMissingCredential；
// 2. 交给 IdentityVerifier 校验，任何失败统一映射为 ErrInvalidCredential；
// 3. 成功后返回 Session，由 handler 一次性绑定到连接上。
func (s *ConnectService) Authenticate(ctx context.Context, token, clientIP string) (*Session, error) {
	token = strings.TrimSpace(token)
	clientIP = strings.TrimSpace(clientIP)
	if token == "" {
		return nil, ErrMissingCredential
	}

	if s.verifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.verifyTimeout)
		defer cancel()
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		logger.Debug(ctx, "凭证校验失败",
			logger.String("client_ip", clientIP),
			logger.ErrorField("error", err),
		)
		return nil, ErrInvalidCredential
	}
	if identity == nil || identity.UserID == "" {
		return nil, ErrInvalidCredential
	}

	return &Session{
		UserID:   identity.UserID,
		Email:    identity.Email,
		ClientIP: clientIP,
	}, nil
}

// OnConnect 在连接绑定身份后触发。
func (s *ConnectService) OnConnect(ctx context.Context, session *Session) {
	logger.Info(ctx, "客户端已连接",
		logger.String("client_ip", session.ClientIP),
	)
}

// OnDisconnect 在连接断开后触发。
func (s *ConnectService) OnDisconnect(ctx context.Context, session *Session) {
	logger.Info(ctx, "客户端已断开",
		logger.String("client_ip", session.ClientIP),
	)
}

// ParseEnvelope 解析客户端上行帧。
// 若 type 缺失或 JSON 不合法，会返回错误交由 handler 返回 error 帧。
func (s *ConnectService) ParseEnvelope(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	envelope.Type = strings.TrimSpace(envelope.Type)
	if envelope.Type == "" {
		return nil, errors.New("type is required")
	}
	return &envelope, nil
}

// MarshalEnvelope 组装并序列化下行帧。
// 约定：data=nil 时省略 data 字段，避免无意义空对象。
func (s *ConnectService) MarshalEnvelope(msgType string, data any) ([]byte, error) {
	envelope := map[string]any{
		"type": msgType,
	}
	if data != nil {
		envelope["data"] = data
	}
	return json.Marshal(envelope)
}
