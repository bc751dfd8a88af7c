package svc

import (
	"SocialSync/consts/redisKey"
	"SocialSync/pkg/logger"
	"SocialSync/pkg/util"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// Identity 凭证解析出的身份，连接生命周期内不可变
type Identity struct {
	UserID string
	Email  string
}

// IdentityVerifier 凭证校验器：不透明凭证 -> 身份
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// RevocationStore 吊销记录查询
type RevocationStore interface {
	IsRevoked(ctx context.Context, token string, claims *util.Claims) (bool, error)
}

// ==================== Redis 吊销记录 ====================

type redisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore 基于 Redis 的吊销记录查询
func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisRevocationStore{client: client}
}

// IsRevoked 同时检查令牌级与用户级吊销：
// - auth:revoked:{md5(token)} 存在即失效；
// - auth:revoked:user:{user_id} 记录的时间点之前签发的令牌失效。
func (s *redisRevocationStore) IsRevoked(ctx context.Context, token string, claims *util.Claims) (bool, error) {
	pipe := s.client.Pipeline()
	tokenCmd := pipe.Exists(ctx, rediskey.RevokedTokenKey(md5Hex(token)))
	userCmd := pipe.Get(ctx, rediskey.RevokedUserKey(claims.UserID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}

	if tokenCmd.Val() > 0 {
		return true, nil
	}
	revokedBefore, err := userCmd.Int64()
	if err != nil {
		// 未设置用户级吊销
		return false, nil
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Unix() < revokedBefore {
		return true, nil
	}
	return false, nil
}

// ==================== JWT 校验器 ====================

// JWTVerifier HS256 校验 + 吊销检查。
// 吊销检查经熔断器保护，Redis 异常或熔断打开时 fail-open，退化为仅 JWT 校验。
type JWTVerifier struct {
	revocations RevocationStore
	breaker     *gobreaker.CircuitBreaker
}

// NewJWTVerifier 创建校验器；revocations 为 nil 时只做 JWT 校验
func NewJWTVerifier(revocations RevocationStore) *JWTVerifier {
	return &JWTVerifier{
		revocations: revocations,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "auth-revocation",
			MaxRequests: 3,
			Interval:    15 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info(context.Background(), "熔断器状态变化",
					logger.String("name", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		}),
	}
}

// Verify 校验凭证
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := util.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: empty user id", util.ErrTokenMalformed)
	}

	if v.revocations != nil {
		revoked, err := v.breaker.Execute(func() (interface{}, error) {
			return v.revocations.IsRevoked(ctx, token, claims)
		})
		switch {
		case err != nil:
			logger.Warn(ctx, "吊销检查失败，降级为仅 JWT 校验",
				logger.String("user_id", claims.UserID),
				logger.ErrorField("error", err),
			)
		case revoked.(bool):
			return nil, errTokenRevoked
		}
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

var errTokenRevoked = errors.New("token revoked")

// md5Hex 返回字符串的 MD5 十六进制摘要，与身份服务写入吊销记录的规则一致
func md5Hex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
