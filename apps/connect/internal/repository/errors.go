package repository

import (
	"SocialSync/pkg/logger"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// ==================== Repository 层统一错误定义 ====================

var (
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDatabase 数据库操作错误
	ErrDatabase = errors.New("database error")
)

// ==================== 核心包装函数 ====================

// WrapDBError 把驱动错误映射为 Repository 层错误。
// 未命中映射规则的错误包装为 ErrDatabase，并保留原始错误链用于日志。
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrDatabase):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrRecordNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateKey
	}
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}

// LogDBError 记录存储层错误
func LogDBError(ctx context.Context, op string, err error) {
	logger.Error(ctx, "文档存储操作错误",
		logger.String("op", op),
		logger.ErrorField("error", err),
	)
}
