package service

import (
	"SocialSync/model"
	"context"
	"errors"
)

var (
	// ErrPrecondition 请求前置条件不满足（用户不存在、参数非法等）
	ErrPrecondition = errors.New("precondition failed")

	// ErrPartialAccept 接受好友申请时至少一侧好友集合更新失败，已交由修复队列处理
	ErrPartialAccept = errors.New("friend request partially accepted")
)

// ==================== 好友关系服务接口 ====================

// IRelationshipService 好友关系服务接口
// 职责：待处理申请查询、接受/拒绝申请、好友列表
type IRelationshipService interface {
	// ListPendingRequests 查询发给 userID 的申请人资料，按 ID 升序
	ListPendingRequests(ctx context.Context, userID string) ([]model.Profile, error)

	// AcceptRequest 接受 byUserID 的申请：双向加好友并清理申请记录
	AcceptRequest(ctx context.Context, userID, byUserID string) error

	// RejectRequest 拒绝 byUserID 的申请，幂等
	RejectRequest(ctx context.Context, userID, byUserID string) error

	// ListFriends 查询好友资料，按 ID 升序
	ListFriends(ctx context.Context, userID string) ([]model.Profile, error)
}

// ==================== 会话服务接口 ====================

// IChatService 会话服务接口
// 职责：会话快照组装、创建会话
type IChatService interface {
	// ListChats 查询 userID 参与的会话快照，按 updated 倒序
	ListChats(ctx context.Context, userID string) ([]*model.ChatSnapshot, error)

	// CreateChat 创建 creatorID 与 otherUserID 的会话并返回快照
	CreateChat(ctx context.Context, creatorID, otherUserID string) (*model.ChatSnapshot, error)
}

// EdgeRepairer 单侧好友边修复入口（实现方通常是消息队列生产者）
type EdgeRepairer interface {
	RepairFriendEdge(ctx context.Context, userID, friendID string) error
}
