package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// RevokedTokenTTL 吊销记录的默认保留时间，应不短于令牌本身的有效期
	RevokedTokenTTL = 7 * 24 * time.Hour
)

// ==================== Key 构造函数 ====================

// RevokedTokenKey 生成吊销令牌 Key: auth:revoked:{md5(token)}
// 由身份服务在登出/踢下线时写入，connect 握手时只读。
func RevokedTokenKey(tokenHash string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenHash)
}

// RevokedUserKey 生成用户级吊销 Key: auth:revoked:user:{user_id}
// 值为 unix 秒，早于该时间签发的令牌一律视为失效。
func RevokedUserKey(userID string) string {
	return fmt.Sprintf("auth:revoked:user:%s", userID)
}
