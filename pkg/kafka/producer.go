package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer Kafka 生产者封装，单 topic。
type Producer struct {
	writer *kafkago.Writer
	topic  string
}

// NewProducer 创建生产者。
// 使用 LeastBytes 均衡分区，RequiredAcks=RequireAll 保证修复任务不丢。
func NewProducer(brokers []string, topic string, writeTimeout time.Duration) *Producer {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
			WriteTimeout: writeTimeout,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

// Topic 返回生产者绑定的 topic。
func (p *Producer) Topic() string {
	return p.topic
}

// Send 发送一条原始消息。
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
}

// SendJSON 将 v 序列化为 JSON 后发送。
func (p *Producer) SendJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal kafka message: %w", err)
	}
	return p.Send(ctx, []byte(key), data)
}

// Close 刷新缓冲并关闭连接。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewZapLoggerAdapter 将 zap logger 适配为 kafka-go 的 Logger。
func NewZapLoggerAdapter(l *zap.Logger) kafkago.Logger {
	sugar := l.Sugar()
	return kafkago.LoggerFunc(func(msg string, args ...interface{}) {
		sugar.Debugf(msg, args...)
	})
}

// NewZapErrorLoggerAdapter 与 NewZapLoggerAdapter 相同，但输出为 error 级别。
func NewZapErrorLoggerAdapter(l *zap.Logger) kafkago.Logger {
	sugar := l.Sugar()
	return kafkago.LoggerFunc(func(msg string, args ...interface{}) {
		sugar.Errorf(msg, args...)
	})
}
