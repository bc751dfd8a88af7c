package kafka

import (
	"context"
	"errors"
	"io"

	"SocialSync/config"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler 处理单条消息；返回错误时消息仍会被提交，重试由业务自行重新投递。
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer Kafka 消费者组封装。
type Consumer struct {
	reader *kafkago.Reader
}

// NewConsumer 创建消费者组读取器。
func NewConsumer(brokers []string, topic string, cfg config.KafkaConsumerConfig, l *zap.Logger) *Consumer {
	readerCfg := kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
	}
	if l != nil {
		readerCfg.Logger = NewZapLoggerAdapter(l)
		readerCfg.ErrorLogger = NewZapErrorLoggerAdapter(l)
	}
	return &Consumer{reader: kafkago.NewReader(readerCfg)}
}

// Run 阻塞消费直到 ctx 取消或 reader 关闭。
// handler 返回的错误不会中断消费循环。
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		_ = handler(ctx, msg)
	}
}

// Close 关闭 reader。
func (c *Consumer) Close() error {
	return c.reader.Close()
}
