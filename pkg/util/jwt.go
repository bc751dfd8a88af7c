package util

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMalformed token 结构或签名非法
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired token 已过期
	ErrTokenExpired = errors.New("token expired")
	// ErrSecretNotSet 未设置签名密钥
	ErrSecretNotSet = errors.New("jwt secret not set")
)

var (
	jwtSecret   []byte
	jwtSecretMu sync.RWMutex
)

// Claims 身份令牌载荷。
// 令牌由外部身份服务签发，这里只负责校验与解析。
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SetJWTSecret 设置 HS256 签名密钥（进程启动时调用）。
func SetJWTSecret(secret string) {
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecret = []byte(secret)
}

func currentSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return jwtSecret
}

// GenerateToken 签发令牌（开发工具与测试使用）。
func GenerateToken(userID, email string, ttl time.Duration) (string, error) {
	secret := currentSecret()
	if len(secret) == 0 {
		return "", ErrSecretNotSet
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken 校验签名与有效期并返回载荷。
func ParseToken(tokenString string) (*Claims, error) {
	secret := currentSecret()
	if len(secret) == 0 {
		return nil, ErrSecretNotSet
	}

	tokenString = strings.TrimSpace(tokenString)
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
