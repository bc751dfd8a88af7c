package repository

import (
	"SocialSync/model"
	"context"
)

// ==================== 用户 Repository ====================

// IUserRepository 用户文档访问接口
type IUserRepository interface {
	// GetByID 根据用户 ID 查询，不存在返回 ErrRecordNotFound
	GetByID(ctx context.Context, userID string) (*model.User, error)

	// BatchGetByIDs 批量查询用户；不存在的 ID 直接跳过，结果顺序不作保证
	BatchGetByIDs(ctx context.Context, userIDs []string) ([]*model.User, error)

	// AddFriend 原子地把 friendID 并入 userID 的 friends 集合（单侧）
	AddFriend(ctx context.Context, userID, friendID string) error
}

// ==================== 好友申请 Repository ====================

// IFriendRequestRepository 好友申请访问接口
type IFriendRequestRepository interface {
	// ListByRecipient 查询发给 userID 的全部待处理申请
	ListByRecipient(ctx context.Context, userID string) ([]*model.FriendRequest, error)

	// CountByPair 统计 (to, by) 匹配的待处理申请条数
	CountByPair(ctx context.Context, to, by string) (int64, error)

	// DeleteByPair 删除所有 (to, by) 匹配的申请，返回删除条数；无匹配时返回 0 且不报错
	DeleteByPair(ctx context.Context, to, by string) (int64, error)
}

// ==================== 会话 Repository ====================

// IChatRepository 会话访问接口
type IChatRepository interface {
	// ListByParticipant 查询 participants 包含 userID 的会话，按 updated 倒序
	ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error)

	// Create 创建会话并返回存储生成的 ID
	Create(ctx context.Context, chat *model.Chat) (string, error)

	// GetByID 根据会话 ID 查询，不存在返回 ErrRecordNotFound
	GetByID(ctx context.Context, chatID string) (*model.Chat, error)
}

// ==================== 消息 Repository ====================

// IMessageRepository 消息访问接口
type IMessageRepository interface {
	// ListRecent 取会话最近 limit 条消息，按 timestamp 升序返回
	ListRecent(ctx context.Context, chatID string, limit int64) ([]*model.Message, error)
}
