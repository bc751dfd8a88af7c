package config

import "time"

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled" env:"REDIS_ENABLED" envDefault:"true"`
	Addr         string        `json:"addr" yaml:"addr" env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password     string        `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `json:"poolSize" yaml:"poolSize" env:"REDIS_POOL_SIZE" envDefault:"50"`
	DialTimeout  time.Duration `json:"dialTimeout" yaml:"dialTimeout" env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" env:"REDIS_READ_TIMEOUT" envDefault:"100ms"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" env:"REDIS_WRITE_TIMEOUT" envDefault:"100ms"`
}

// DefaultRedisConfig 返回 Redis 配置。
// REDIS_ENABLED=false 时清空地址，吊销校验降级为仅 JWT。
func DefaultRedisConfig() (RedisConfig, error) {
	cfg, err := parseEnv[RedisConfig]()
	if err != nil {
		return cfg, err
	}
	if !cfg.Enabled {
		cfg.Addr = ""
	}
	return cfg, nil
}
