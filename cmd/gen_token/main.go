package main

import (
	"SocialSync/config"
	"SocialSync/pkg/util"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// 本地联调用：签发一个与 connect 服务同密钥的身份令牌
//
//	go run ./cmd/gen_token --user u1 --email u1@example.com
func main() {
	_ = godotenv.Load()

	userID := flag.StringP("user", "u", "", "用户 ID（必填）")
	email := flag.StringP("email", "e", "", "邮箱")
	ttl := flag.DurationP("ttl", "t", 24*time.Hour, "有效期")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "缺少 --user 参数")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.DefaultConnectConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}
	util.SetJWTSecret(cfg.JWTSecret)
	token, err := util.GenerateToken(*userID, *email, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("用户: %s\n", *userID)
	fmt.Printf("有效期: %s\n", ttl.String())
	fmt.Printf("令牌: %s\n", token)
	fmt.Printf("\n连接地址: ws://localhost%s/ws?token=%s\n", cfg.Addr, token)
}
