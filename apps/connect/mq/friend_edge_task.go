package mq

import (
	"SocialSync/pkg/ctxmeta"
	"context"
	"time"
)

const (
	// defaultMaxRetries 修复任务默认最大重试次数
	defaultMaxRetries = 3
	// maxRetryDelay 单次重试等待上限
	maxRetryDelay = time.Minute
)

// FriendEdgeTask 存放在 Kafka 里的单侧好友边修复任务：
// 把 FriendID 并入 UserID 的 friends 集合。
type FriendEdgeTask struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`

	// 元数据（用于追踪和重试控制）
	TraceID     string    `json:"trace_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	NotBefore   time.Time `json:"not_before,omitempty"` // 早于该时间不执行
	RetryCount  int       `json:"retry_count"`          // 已重试次数
	MaxRetries  int       `json:"max_retries"`          // 最大重试次数
	OriginalErr string    `json:"original_err"`         // 最近一次失败原因
}

// BuildFriendEdgeTask 构造修复任务
func BuildFriendEdgeTask(userID, friendID string) FriendEdgeTask {
	return FriendEdgeTask{
		UserID:     userID,
		FriendID:   friendID,
		Timestamp:  time.Now(),
		RetryCount: 0,
		MaxRetries: defaultMaxRetries,
	}
}

// Key 分区键，同一用户的修复任务落在同一分区
func (t FriendEdgeTask) Key() string {
	return t.UserID
}

// Exhausted 是否已用尽重试次数
func (t FriendEdgeTask) Exhausted() bool {
	return t.RetryCount >= t.MaxRetries
}

// NextAttempt 返回重试次数加一后的任务，执行时间按 backoff 指数后移
func (t FriendEdgeTask) NextAttempt(err error, backoff time.Duration) FriendEdgeTask {
	t.RetryCount++
	t.Timestamp = time.Now()
	t.NotBefore = t.Timestamp.Add(retryDelay(backoff, t.RetryCount))
	if err != nil {
		t.OriginalErr = err.Error()
	}
	return t
}

// retryDelay 第 n 次重试的等待时间：backoff * 2^(n-1)，不超过 maxRetryDelay
func retryDelay(backoff time.Duration, attempt int) time.Duration {
	if backoff <= 0 || attempt <= 0 {
		return 0
	}
	delay := backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return min(delay, maxRetryDelay)
}

// ==================== 链式方法 ====================

// WithContext 为任务添加追踪信息
func (t FriendEdgeTask) WithContext(ctx context.Context) FriendEdgeTask {
	if traceID := ctxmeta.TraceID(ctx); traceID != "" {
		t.TraceID = traceID
	}
	return t
}

// WithError 为任务添加错误信息
func (t FriendEdgeTask) WithError(err error) FriendEdgeTask {
	if err != nil {
		t.OriginalErr = err.Error()
	}
	return t
}

// WithMaxRetries 设置最大重试次数
func (t FriendEdgeTask) WithMaxRetries(maxRetries int) FriendEdgeTask {
	if maxRetries > 0 {
		t.MaxRetries = maxRetries
	}
	return t
}
