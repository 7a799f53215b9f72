// Package kafka wraps segmentio/kafka-go for the parse request stream: a
// group consumer with at-least-once delivery and a JSON event producer.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// HeaderRequestID carries the originating request ID across the topic.
const HeaderRequestID = "request_id"

// MessageHandler processes one message. A non-nil error means the message
// is handled again, after a backoff, before any later message of the
// partition.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	initialRedeliveryDelay = time.Second
	maxRedeliveryDelay     = 30 * time.Second
)

// Consumer reads a topic as part of a consumer group.
type Consumer struct {
	reader  messageReader
	handler MessageHandler
	logger  *slog.Logger

	initialDelay time.Duration
	maxDelay     time.Duration
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return newConsumer(kafka.NewReader(readerConfig(cfg, topic)), topic, handler)
}

func newConsumer(reader messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:       reader,
		handler:      handler,
		logger:       slog.Default().With("component", "kafka-consumer", "topic", topic),
		initialDelay: initialRedeliveryDelay,
		maxDelay:     maxRedeliveryDelay,
	}
}

// readerConfig starts a new group at the oldest message so requests queued
// before the first deployment are still parsed. Commits are explicit.
func readerConfig(cfg config.KafkaConfig, topic string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}
}

// Start consumes until ctx is cancelled, then closes the reader. A message
// is committed only after its handler succeeds, and the next message is not
// fetched before that, so a commit never skips a failed offset.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		if !c.process(ctx, msg) {
			c.logger.Info("consumer stopping with message uncommitted",
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			return nil
		}
	}
}

// process handles msg until it succeeds and commits it. It reports false
// when ctx ends first; the message then stays uncommitted and the group
// redelivers it.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctx = withHeaders(ctx, msg.Headers)
	log := logger.FromContext(ctx).With("partition", msg.Partition, "offset", msg.Offset)
	log.Debug("message received", "key", string(msg.Key), "bytes", len(msg.Value))

	delay := c.initialDelay
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		log.Error("message not processed, handling again", "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
		delay = min(2*delay, c.maxDelay)
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// the next commit of this partition covers it
		log.Error("commit failed", "error", err)
	}
	return true
}

func withHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	for _, h := range headers {
		if h.Key == HeaderRequestID && len(h.Value) > 0 {
			return logger.WithRequestID(ctx, string(h.Value))
		}
	}
	return ctx
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// Ping dials each broker until one answers. It backs the readiness check.
func Ping(ctx context.Context, brokers []string) error {
	lastErr := errors.New("no brokers configured")
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("kafka unreachable: %w", lastErr)
}
