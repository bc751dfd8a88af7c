package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// parseEnv 按结构体 env/envDefault 标签从环境变量构建配置。
// 变量存在但格式非法时返回错误，由调用方决定是否中止启动。
func parseEnv[T any]() (T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// compact 去掉列表项两侧空白并丢弃空项（如 "a, ,b"）。
func compact(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
