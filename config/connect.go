package config

import "time"

// ConnectConfig connect 服务运行参数。
type ConnectConfig struct {
	Addr              string        `json:"addr" yaml:"addr" env:"CONNECT_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout" env:"CONNECT_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout" env:"CONNECT_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout" env:"CONNECT_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout" env:"CONNECT_IDLE_TIMEOUT" envDefault:"60s"`

	JWTSecret     string        `json:"-" yaml:"-" env:"JWT_SECRET" envDefault:"socialsync-dev-secret"`
	VerifyTimeout time.Duration `json:"verifyTimeout" yaml:"verifyTimeout" env:"VERIFY_TIMEOUT" envDefault:"3s"` // 单次凭证校验超时

	EventTimeout  time.Duration `json:"eventTimeout" yaml:"eventTimeout" env:"EVENT_TIMEOUT" envDefault:"10s"`   // 单个事件处理超时
	EventRate     float64       `json:"eventRate" yaml:"eventRate" env:"EVENT_RATE" envDefault:"20"`             // 每连接每秒事件数，0 表示不限流
	EventBurst    int           `json:"eventBurst" yaml:"eventBurst" env:"EVENT_BURST" envDefault:"40"`          // 令牌桶容量
	MessageWindow int64         `json:"messageWindow" yaml:"messageWindow" env:"MESSAGE_WINDOW" envDefault:"50"` // 会话快照携带的最近消息条数
	ChatFanout    int           `json:"chatFanout" yaml:"chatFanout" env:"CHAT_FANOUT" envDefault:"8"`           // 会话快照并发组装上限

	NodeID int64 `json:"nodeId" yaml:"nodeId" env:"NODE_ID" envDefault:"1"` // 雪花算法节点号
}

// DefaultConnectConfig 返回 connect 服务配置。
// 端口读取 CONNECT_ADDR，未设置时默认监听 :8080（与原服务一致）。
func DefaultConnectConfig() (ConnectConfig, error) {
	return parseEnv[ConnectConfig]()
}
