package config

import "time"

// AsyncConfig 协程池配置。
// 说明：connect 的每个上行事件都作为一个独立任务投递到该池。
type AsyncConfig struct {
	PoolSize         int           `json:"poolSize" yaml:"poolSize" env:"ASYNC_POOL_SIZE" envDefault:"1024"`                 // 协程池容量
	MaxBlockingTasks int           `json:"maxBlockingTasks" yaml:"maxBlockingTasks" env:"ASYNC_MAX_BLOCKING" envDefault:"0"` // 最大阻塞任务数（0 表示不限制）
	ExpiryDuration   time.Duration `json:"expiryDuration" yaml:"expiryDuration" env:"ASYNC_EXPIRY" envDefault:"10s"`         // 空闲 worker 过期时间
	Nonblocking      bool          `json:"nonblocking" yaml:"nonblocking" env:"ASYNC_NONBLOCKING" envDefault:"false"`        // 是否非阻塞提交
	ReleaseTimeout   time.Duration `json:"releaseTimeout" yaml:"releaseTimeout" env:"ASYNC_RELEASE_TIMEOUT" envDefault:"5s"` // 优雅释放等待时间
}

// DefaultAsyncConfig 返回默认配置，可通过环境变量覆盖。
func DefaultAsyncConfig() (AsyncConfig, error) {
	return parseEnv[AsyncConfig]()
}
