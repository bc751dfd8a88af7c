package config

import "time"

// KafkaConsumerConfig 消费者配置。
type KafkaConsumerConfig struct {
	GroupID        string        `json:"groupId" yaml:"groupId" env:"KAFKA_GROUP_ID" envDefault:"connect-friend-edge-repair"`
	MinBytes       int           `json:"minBytes" yaml:"minBytes" env:"KAFKA_MIN_BYTES" envDefault:"1"`
	MaxBytes       int           `json:"maxBytes" yaml:"maxBytes" env:"KAFKA_MAX_BYTES" envDefault:"10000000"`
	CommitInterval time.Duration `json:"commitInterval" yaml:"commitInterval" env:"KAFKA_COMMIT_INTERVAL" envDefault:"1s"`
}

// KafkaConfig Kafka 配置。
// Brokers 为空时不启用好友关系修复队列，失败仅记录日志。
type KafkaConfig struct {
	Brokers          []string            `json:"brokers" yaml:"brokers" env:"KAFKA_BROKERS"`
	FriendEdgeTopic  string              `json:"friendEdgeTopic" yaml:"friendEdgeTopic" env:"KAFKA_FRIEND_EDGE_TOPIC" envDefault:"friend-edge-repair"`
	MaxRepairRetries int                 `json:"maxRepairRetries" yaml:"maxRepairRetries" env:"KAFKA_MAX_REPAIR_RETRIES" envDefault:"3"`
	RepairBackoff    time.Duration       `json:"repairBackoff" yaml:"repairBackoff" env:"KAFKA_REPAIR_BACKOFF" envDefault:"2s"` // 重投基准间隔，按重试次数递增
	WriteTimeout     time.Duration       `json:"writeTimeout" yaml:"writeTimeout" env:"KAFKA_WRITE_TIMEOUT" envDefault:"5s"`
	ConsumerConfig   KafkaConsumerConfig `json:"consumer" yaml:"consumer"`
}

// DefaultKafkaConfig 返回 Kafka 配置。
func DefaultKafkaConfig() (KafkaConfig, error) {
	cfg, err := parseEnv[KafkaConfig]()
	if err != nil {
		return cfg, err
	}
	cfg.Brokers = compact(cfg.Brokers)
	return cfg, nil
}
