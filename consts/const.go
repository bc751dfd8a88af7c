package consts

// WebSocket 握手拒绝使用的关闭码（4000-4999 为应用自定义区间）。
const (
	CloseMissingCredential = 4001 // 未携带凭证
	CloseInvalidCredential = 4003 // 凭证无效或已过期
	CloseInternalError     = 4500 // 校验过程内部错误
)

// 通用状态码（HTTP 侧路由响应）。
const (
	CodeSuccess      = 0
	CodeShuttingDown = 50301 // 服务正在停机
)

// WebSocket 协议层错误码（仅用于 ws 帧内的 error 消息）。
const (
	CodeInvalidFrame    = 10001 // 帧格式错误
	CodeTooManyRequests = 10005 // 事件过于频繁
)

// 上行事件
const (
	EventHeartbeat           = "heartbeat"
	EventGetFriendRequests   = "get-friend-requests"
	EventAcceptFriendRequest = "accept-friend-request"
	EventRejectFriendRequest = "reject-friend-request"
	EventGetFriendList       = "get-friend-list"
	EventGetChats            = "get-chats"
	EventCreateNewChatRoom   = "create-new-chat-room"
)

// 下行事件
const (
	EventHeartbeatAck   = "heartbeat_ack"
	EventError          = "error"
	EventFriendRequests = "friend-requests"
	EventFriendList     = "friend-list"
	EventChats          = "chats"
	EventNewChatRoom    = "new-chat-room"
)

// CodeMessage 错误码描述
var CodeMessage = map[int]string{
	CodeSuccess:         "success",
	CodeShuttingDown:    "service shutting down",
	CodeInvalidFrame:    "invalid frame format",
	CodeTooManyRequests: "too many requests",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}
