package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"neosocial/internal/config"
)

// pollTimeoutMs is how long each Poll blocks before ctx is checked again.
const pollTimeoutMs = 1000

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// MessageHandler processes one consumed message. The offset is committed only
// when it returns nil; otherwise the same message is delivered again after a backoff.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, handler MessageHandler) error
	Close()
}

// offsetClient is the part of *kafka.Consumer used while dispatching a message.
type offsetClient interface {
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
}

// retryBackoff doubles the delay after each consecutive failure, up to max.
type retryBackoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newRetryBackoff() *retryBackoff {
	return &retryBackoff{initial: initialRetryDelay, max: maxRetryDelay}
}

func (b *retryBackoff) next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current = min(b.current*2, b.max)
	}
	return b.current
}

func (b *retryBackoff) reset() { b.current = 0 }

// dispatch hands msg to handler and commits its offset on success. When the
// handler fails, the partition is rewound to msg so the next Poll delivers it
// again, and dispatch waits out the backoff first. Later messages on that
// partition are never committed past a failed one. The returned error is
// non-nil only if ctx ends during the wait.
func dispatch(ctx context.Context, client offsetClient, msg *kafka.Message, handler MessageHandler, backoff *retryBackoff, logger *zap.Logger) error {
	fields := []zap.Field{
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.String("offset", msg.TopicPartition.Offset.String()),
	}
	if msg.TopicPartition.Topic != nil {
		fields = append(fields, zap.String("topic", *msg.TopicPartition.Topic))
	}

	if err := handler(ctx, msg); err != nil {
		delay := backoff.next()
		logger.Error("failed to process message, will retry", append(fields, zap.Error(err), zap.Duration("retry_in", delay))...)
		if err := client.Seek(msg.TopicPartition, 0); err != nil {
			logger.Error("failed to rewind partition", append(fields, zap.Error(err))...)
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	backoff.reset()
	if _, err := client.CommitMessage(msg); err != nil {
		logger.Warn("failed to commit offset", append(fields, zap.Error(err))...)
	}
	return nil
}

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	logger   *zap.Logger
}

// NewConfluentKafkaConsumer prepares a consumer in cfg.ConsumerGroup. The
// underlying client is created by Consume.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig, logger *zap.Logger) (MessageConsumer, error) {
	if cfg.ConsumerGroup == "" {
		return nil, errors.New("kafka consumer: consumer group is required")
	}
	return &confluentKafkaConsumer{
		cfg:    cfg,
		logger: logger.Named("kafka_consumer").With(zap.String("group", cfg.ConsumerGroup)),
	}, nil
}

// Consume blocks until ctx is canceled or a fatal Kafka error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           c.cfg.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": "false",
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", c.cfg.ConsumerGroup, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v: %w", topics, err)
	}
	c.logger.Info("kafka consumer started", zap.Strings("topics", topics))

	backoff := newRetryBackoff()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping consumer")
			return nil
		default:
		}

		ev := c.consumer.Poll(pollTimeoutMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := dispatch(ctx, c.consumer, e, handler, backoff, c.logger); err != nil {
				c.logger.Info("context canceled while waiting to retry, stopping consumer")
				return nil
			}
		case kafka.Error:
			c.logger.Error("kafka consumer error",
				zap.Error(e),
				zap.Bool("fatal", e.IsFatal()),
				zap.Bool("retriable", e.IsRetriable()))
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			c.logger.Info("partitions assigned", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			c.logger.Info("partitions revoked", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		c.logger.Warn("error closing kafka consumer", zap.Error(err))
	} else {
		c.logger.Info("kafka consumer closed")
	}
	c.consumer = nil
}
