package service

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/model"
	"SocialSync/pkg/logger"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMessageWindow int64 = 50
	defaultChatFanout          = 8
)

// chatServiceImpl 会话服务实现
type chatServiceImpl struct {
	userRepo    repository.IUserRepository
	chatRepo    repository.IChatRepository
	messageRepo repository.IMessageRepository

	window int64
	fanout int
	now    func() time.Time
}

// NewChatService 创建会话服务实例。
// window 为快照携带的最近消息条数，fanout 为并发组装快照的上限，非正数取默认值。
func NewChatService(
	userRepo repository.IUserRepository,
	chatRepo repository.IChatRepository,
	messageRepo repository.IMessageRepository,
	window int64,
	fanout int,
) IChatService {
	if window <= 0 {
		window = defaultMessageWindow
	}
	if fanout <= 0 {
		fanout = defaultChatFanout
	}
	return &chatServiceImpl{
		userRepo:    userRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		window:      window,
		fanout:      fanout,
		now:         time.Now,
	}
}

// ListChats 获取会话列表
// 每个会话的参与者与消息窗口并发组装，任一失败则整体失败。
func (s *chatServiceImpl) ListChats(ctx context.Context, userID string) ([]*model.ChatSnapshot, error) {
	chats, err := s.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		repository.LogDBError(ctx, "ListChats", err)
		return nil, err
	}

	snapshots := make([]*model.ChatSnapshot, len(chats))
	if len(chats) == 0 {
		return snapshots, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, chat := range chats {
		g.Go(func() error {
			snap, err := s.snapshot(gctx, chat, userID, true)
			if err != nil {
				return err
			}
			snapshots[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CreateChat 创建会话
func (s *chatServiceImpl) CreateChat(ctx context.Context, creatorID, otherUserID string) (*model.ChatSnapshot, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, fmt.Errorf("%w: empty otherUserId", ErrPrecondition)
	}
	if otherUserID == creatorID {
		return nil, fmt.Errorf("%w: cannot chat with self", ErrPrecondition)
	}

	chatID, err := s.chatRepo.Create(ctx, &model.Chat{
		Participants: []string{creatorID, otherUserID},
		Updated:      s.now().UTC(),
	})
	if err != nil {
		repository.LogDBError(ctx, "CreateChat", err)
		return nil, err
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		repository.LogDBError(ctx, "GetChat", err)
		return nil, err
	}

	snap, err := s.snapshot(ctx, chat, creatorID, false)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "会话已创建",
		logger.String("chat_id", chatID),
		logger.String("other_user_id", otherUserID),
	)
	return snap, nil
}

// snapshot 组装单个会话视图；withMessages 为 false 时消息固定为空（新建会话）
func (s *chatServiceImpl) snapshot(ctx context.Context, chat *model.Chat, viewerID string, withMessages bool) (*model.ChatSnapshot, error) {
	participants, err := s.resolveOthers(ctx, chat.Participants, viewerID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.Message, 0)
	if withMessages {
		recent, err := s.messageRepo.ListRecent(ctx, chat.ID.Hex(), s.window)
		if err != nil {
			repository.LogDBError(ctx, "ListRecentMessages", err)
			return nil, err
		}
		if recent != nil {
			messages = recent
		}
	}

	return &model.ChatSnapshot{
		ID:           chat.ID.Hex(),
		Updated:      chat.Updated,
		Participants: participants,
		Messages:     messages,
	}, nil
}

// resolveOthers 解析除 viewer 以外的参与者资料，保持参与者原有顺序，已不存在的用户直接丢弃
func (s *chatServiceImpl) resolveOthers(ctx context.Context, participants []string, viewerID string) ([]model.Profile, error) {
	others := make([]string, 0, len(participants))
	for _, id := range participants {
		if id != viewerID && id != "" {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return []model.Profile{}, nil
	}

	users, err := s.userRepo.BatchGetByIDs(ctx, others)
	if err != nil {
		repository.LogDBError(ctx, "BatchGetUsers", err)
		return nil, err
	}
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		if u != nil {
			byID[u.ID] = u
		}
	}

	profiles := make([]model.Profile, 0, len(others))
	for _, id := range others {
		if u, ok := byID[id]; ok {
			profiles = append(profiles, u.ToProfile())
		}
	}
	return profiles, nil
}
