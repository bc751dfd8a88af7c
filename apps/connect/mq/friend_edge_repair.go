package mq

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/pkg/ctxmeta"
	"SocialSync/pkg/logger"
	"SocialSync/pkg/metrics"
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// 修复任务结果标签
const (
	OutcomeEnqueued = "enqueued"
	OutcomeApplied  = "applied"
	OutcomeRetried  = "retried"
	OutcomeFailed   = "failed"
	OutcomeDropped  = "dropped"
)

// Publisher 修复任务投递
type Publisher interface {
	SendJSON(ctx context.Context, key string, v any) error
}

// ==================== 生产端 ====================

// FriendEdgeRepairer 把接受好友申请时失败的单侧更新投递到修复队列
type FriendEdgeRepairer struct {
	publisher  Publisher
	maxRetries int
}

// NewFriendEdgeRepairer 创建修复任务生产者
func NewFriendEdgeRepairer(publisher Publisher, maxRetries int) *FriendEdgeRepairer {
	return &FriendEdgeRepairer{publisher: publisher, maxRetries: maxRetries}
}

// RepairFriendEdge 投递修复任务
func (r *FriendEdgeRepairer) RepairFriendEdge(ctx context.Context, userID, friendID string) error {
	task := BuildFriendEdgeTask(userID, friendID).
		WithContext(ctx).
		WithMaxRetries(r.maxRetries)
	if err := r.publisher.SendJSON(ctx, task.Key(), task); err != nil {
		return err
	}
	metrics.FriendEdgeRepairs.WithLabelValues(OutcomeEnqueued).Inc()
	logger.Info(ctx, "好友边修复任务已投递",
		logger.String("owner", userID),
		logger.String("friend", friendID),
	)
	return nil
}

// ==================== 消费端 ====================

// requeueTimeout 消费者退出时放回未到期任务的超时
const requeueTimeout = 3 * time.Second

// FriendEdgeConsumer 重新执行 $addToSet；失败时带着 retry_count+1 重新投递，
// 下一次执行按 backoff 指数延后，达到上限后记录错误并放弃。
type FriendEdgeConsumer struct {
	users     repository.IUserRepository
	publisher Publisher
	backoff   time.Duration
}

// NewFriendEdgeConsumer 创建修复任务消费者
func NewFriendEdgeConsumer(users repository.IUserRepository, publisher Publisher, backoff time.Duration) *FriendEdgeConsumer {
	return &FriendEdgeConsumer{users: users, publisher: publisher, backoff: backoff}
}

// Handle 处理单条修复消息，签名与 kafka.MessageHandler 一致
func (c *FriendEdgeConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	var task FriendEdgeTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeDropped).Inc()
		logger.Error(ctx, "修复任务反序列化失败，丢弃",
			logger.Int64("offset", msg.Offset),
			logger.ErrorField("error", err),
		)
		return nil
	}
	if task.TraceID != "" {
		ctx = ctxmeta.WithTraceID(ctx, task.TraceID)
	}
	return c.Apply(ctx, task)
}

// Apply 执行一次修复
func (c *FriendEdgeConsumer) Apply(ctx context.Context, task FriendEdgeTask) error {
	if task.UserID == "" || task.FriendID == "" {
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeDropped).Inc()
		logger.Warn(ctx, "修复任务缺少用户 ID，丢弃")
		return nil
	}

	if err := waitUntil(ctx, task.NotBefore); err != nil {
		c.requeue(ctx, task)
		return err
	}

	err := c.users.AddFriend(ctx, task.UserID, task.FriendID)
	switch {
	case err == nil:
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeApplied).Inc()
		logger.Info(ctx, "好友边修复成功",
			logger.String("owner", task.UserID),
			logger.String("friend", task.FriendID),
			logger.Int("retry_count", task.RetryCount),
		)
		return nil
	case errors.Is(err, repository.ErrRecordNotFound):
		// 用户文档已不存在，重试没有意义
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeDropped).Inc()
		logger.Warn(ctx, "好友边修复目标用户不存在，丢弃",
			logger.String("owner", task.UserID),
			logger.String("friend", task.FriendID),
		)
		return nil
	}

	if task.Exhausted() {
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeFailed).Inc()
		logger.Error(ctx, "好友边修复重试次数用尽，需人工处理",
			logger.String("owner", task.UserID),
			logger.String("friend", task.FriendID),
			logger.Int("retry_count", task.RetryCount),
			logger.ErrorField("error", err),
		)
		return err
	}

	next := task.NextAttempt(err, c.backoff)
	if pubErr := c.publisher.SendJSON(ctx, next.Key(), next); pubErr != nil {
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeFailed).Inc()
		logger.Error(ctx, "好友边修复任务重新投递失败",
			logger.String("owner", task.UserID),
			logger.String("friend", task.FriendID),
			logger.ErrorField("error", pubErr),
		)
		return pubErr
	}
	metrics.FriendEdgeRepairs.WithLabelValues(OutcomeRetried).Inc()
	logger.Warn(ctx, "好友边修复失败，已重新投递",
		logger.String("owner", task.UserID),
		logger.String("friend", task.FriendID),
		logger.Int("retry_count", next.RetryCount),
		logger.Time("not_before", next.NotBefore),
		logger.ErrorField("error", err),
	)
	return err
}

// requeue 等待期间消费者退出，任务原样放回队列
func (c *FriendEdgeConsumer) requeue(ctx context.Context, task FriendEdgeTask) {
	pubCtx, cancel := context.WithTimeout(ctxmeta.Detach(ctx), requeueTimeout)
	defer cancel()
	if err := c.publisher.SendJSON(pubCtx, task.Key(), task); err != nil {
		metrics.FriendEdgeRepairs.WithLabelValues(OutcomeFailed).Inc()
		logger.Error(ctx, "好友边修复任务放回队列失败",
			logger.String("owner", task.UserID),
			logger.String("friend", task.FriendID),
			logger.ErrorField("error", err),
		)
		return
	}
	logger.Info(ctx, "消费者退出，未到期的修复任务已放回队列",
		logger.String("owner", task.UserID),
		logger.String("friend", task.FriendID),
	)
}

// waitUntil 阻塞到 at，ctx 先结束时返回其错误
func waitUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
