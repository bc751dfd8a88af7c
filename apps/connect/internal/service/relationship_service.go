package service

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/model"
	"SocialSync/pkg/ctxmeta"
	"SocialSync/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// defaultCleanupTimeout 接受申请部分失败后，清理与修复投递的独立超时
const defaultCleanupTimeout = 3 * time.Second

// relationshipServiceImpl 好友关系服务实现
type relationshipServiceImpl struct {
	userRepo    repository.IUserRepository
	requestRepo repository.IFriendRequestRepository
	repairer    EdgeRepairer

	cleanupTimeout time.Duration
}

// NewRelationshipService 创建好友关系服务实例；repairer 为 nil 时单侧失败只记录日志
func NewRelationshipService(
	userRepo repository.IUserRepository,
	requestRepo repository.IFriendRequestRepository,
	repairer EdgeRepairer,
) IRelationshipService {
	return &relationshipServiceImpl{
		userRepo:       userRepo,
		requestRepo:    requestRepo,
		repairer:       repairer,
		cleanupTimeout: defaultCleanupTimeout,
	}
}

// ListPendingRequests 获取待处理的好友申请
func (s *relationshipServiceImpl) ListPendingRequests(ctx context.Context, userID string) ([]model.Profile, error) {
	requests, err := s.requestRepo.ListByRecipient(ctx, userID)
	if err != nil {
		repository.LogDBError(ctx, "ListByRecipient", err)
		return nil, err
	}

	seen := make(map[string]struct{}, len(requests))
	requesterIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		if req.By == "" {
			continue
		}
		if _, ok := seen[req.By]; ok {
			continue
		}
		seen[req.By] = struct{}{}
		requesterIDs = append(requesterIDs, req.By)
	}
	// 没有申请时不再发起第二次查询
	if len(requesterIDs) == 0 {
		return []model.Profile{}, nil
	}

	return s.loadProfiles(ctx, requesterIDs)
}

// AcceptRequest 接受好友申请
// 仅当存在 (to=userID, by=byUserID) 的待处理申请时才写入好友关系。
// 两侧好友集合分别更新，任一侧失败不影响另一侧及后续的申请清理；
// 失败的一侧交给修复队列，最终返回 ErrPartialAccept。
func (s *relationshipServiceImpl) AcceptRequest(ctx context.Context, userID, byUserID string) error {
	byUserID = strings.TrimSpace(byUserID)
	if byUserID == "" || byUserID == userID {
		return fmt.Errorf("%w: invalid requester %q", ErrPrecondition, byUserID)
	}

	pending, err := s.requestRepo.CountByPair(ctx, userID, byUserID)
	if err != nil {
		repository.LogDBError(ctx, "CountByPair", err)
		return err
	}
	if pending == 0 {
		return fmt.Errorf("%w: no pending request from %s", ErrPrecondition, byUserID)
	}

	var (
		failed []error
		broken [][2]string
	)
	for _, edge := range [][2]string{{userID, byUserID}, {byUserID, userID}} {
		if err := s.userRepo.AddFriend(ctx, edge[0], edge[1]); err != nil {
			logger.Error(ctx, "更新好友集合失败",
				logger.String("owner", edge[0]),
				logger.String("friend", edge[1]),
				logger.ErrorField("error", err),
			)
			broken = append(broken, edge)
			failed = append(failed, err)
		}
	}

	// 第一步失败多半是事件超时，清理与修复投递改用独立的上下文
	cleanupCtx := ctx
	if len(broken) > 0 {
		var cancel context.CancelFunc
		cleanupCtx, cancel = context.WithTimeout(ctxmeta.Detach(ctx), s.cleanupTimeout)
		defer cancel()
		for _, edge := range broken {
			s.repair(cleanupCtx, edge[0], edge[1])
		}
	}

	deleted, err := s.requestRepo.DeleteByPair(cleanupCtx, userID, byUserID)
	if err != nil {
		repository.LogDBError(cleanupCtx, "DeleteByPair", err)
		failed = append(failed, err)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", ErrPartialAccept, errors.Join(failed...))
	}

	logger.Info(ctx, "好友申请已接受",
		logger.String("by_user_id", byUserID),
		logger.Int64("deleted_requests", deleted),
	)
	return nil
}

// RejectRequest 拒绝好友申请
func (s *relationshipServiceImpl) RejectRequest(ctx context.Context, userID, byUserID string) error {
	byUserID = strings.TrimSpace(byUserID)
	if byUserID == "" {
		return fmt.Errorf("%w: empty requester", ErrPrecondition)
	}

	deleted, err := s.requestRepo.DeleteByPair(ctx, userID, byUserID)
	if err != nil {
		repository.LogDBError(ctx, "DeleteByPair", err)
		return err
	}

	logger.Info(ctx, "好友申请已拒绝",
		logger.String("by_user_id", byUserID),
		logger.Int64("deleted_requests", deleted),
	)
	return nil
}

// ListFriends 获取好友列表
func (s *relationshipServiceImpl) ListFriends(ctx context.Context, userID string) ([]model.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", ErrPrecondition, userID)
		}
		repository.LogDBError(ctx, "GetUser", err)
		return nil, err
	}

	if len(user.Friends) == 0 {
		return []model.Profile{}, nil
	}
	return s.loadProfiles(ctx, user.Friends)
}

// loadProfiles 批量加载资料并按 ID 排序，结果不依赖存储返回顺序
func (s *relationshipServiceImpl) loadProfiles(ctx context.Context, userIDs []string) ([]model.Profile, error) {
	users, err := s.userRepo.BatchGetByIDs(ctx, userIDs)
	if err != nil {
		repository.LogDBError(ctx, "BatchGetUsers", err)
		return nil, err
	}

	profiles := make([]model.Profile, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		profiles = append(profiles, u.ToProfile())
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ID < profiles[j].ID
	})
	return profiles, nil
}

func (s *relationshipServiceImpl) repair(ctx context.Context, userID, friendID string) {
	if s.repairer == nil {
		logger.Warn(ctx, "未配置好友边修复队列，单侧好友关系需人工处理",
			logger.String("owner", userID),
			logger.String("friend", friendID),
		)
		return
	}
	if err := s.repairer.RepairFriendEdge(ctx, userID, friendID); err != nil {
		logger.Error(ctx, "投递好友边修复任务失败",
			logger.String("owner", userID),
			logger.String("friend", friendID),
			logger.ErrorField("error", err),
		)
	}
}
