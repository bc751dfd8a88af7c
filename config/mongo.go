package config

import (
	"fmt"
	"time"
)

// 存储驱动
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// MongoConfig 文档存储配置。
type MongoConfig struct {
	Driver         string        `json:"driver" yaml:"driver" env:"STORE_DRIVER" envDefault:"mongo"` // mongo/memory
	URI            string        `json:"uri" yaml:"uri" env:"MONGO_URL" envDefault:"mongodb://127.0.0.1:27017"`
	Database       string        `json:"database" yaml:"database" env:"MONGO_DATABASE" envDefault:"socialsync"`
	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout" env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`
	MaxPoolSize    uint64        `json:"maxPoolSize" yaml:"maxPoolSize" env:"MONGO_MAX_POOL_SIZE" envDefault:"100"`
}

// DefaultMongoConfig 返回文档存储配置，未知驱动直接报错。
func DefaultMongoConfig() (MongoConfig, error) {
	cfg, err := parseEnv[MongoConfig]()
	if err != nil {
		return cfg, err
	}
	switch cfg.Driver {
	case StoreDriverMongo, StoreDriverMemory:
		return cfg, nil
	default:
		return cfg, fmt.Errorf("parse env: unknown STORE_DRIVER %q", cfg.Driver)
	}
}
