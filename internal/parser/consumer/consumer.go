// Package consumer reads parse requests from Kafka, runs them through the
// parse engine and reports the outcome on the index-complete topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/tracing"
)

// Engine is the subset of parser.Engine the consumer drives. Analysis and
// submission are called separately so only the submission is retried.
type Engine interface {
	Analyze(ctx context.Context, content string) ([]index.WordOffsets, error)
	Submit(ctx context.Context, documentID string, words []index.WordOffsets) error
}

// DocumentSaver stores the event's document before it is indexed.
type DocumentSaver interface {
	SaveDocument(ctx context.Context, doc store.Document) error
}

// Publisher sends completion events.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// ParseConsumer wraps a Kafka consumer to drive the parse pipeline.
type ParseConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a ParseConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *ParseConsumer {
	return &ParseConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "parse-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (pc *ParseConsumer) Start(ctx context.Context) error {
	pc.logger.Info("parse consumer starting")
	return pc.consumer.Start(ctx)
}

// Handler turns parse request events into engine calls.
type Handler struct {
	engine    Engine
	saver     DocumentSaver
	publisher Publisher
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

// NewHandler creates a Handler. saver and publisher may be nil. Only
// transient submission failures are retried, whatever retry.Retryable says.
func NewHandler(engine Engine, saver DocumentSaver, publisher Publisher, retry resilience.RetryConfig) *Handler {
	retry.Retryable = apperrors.IsRetryable
	return &Handler{
		engine:    engine,
		saver:     saver,
		publisher: publisher,
		retry:     retry,
		logger:    slog.Default().With("component", "parse-consumer"),
	}
}

// Handle processes one message. Undecodable or invalid events and failed
// scans are reported and dropped. A submission that still fails after the
// retries returns an error, and the Kafka consumer handles the message again
// before moving past it.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[ParseRequestEvent](value)
	if err != nil {
		h.logger.Error("failed to decode parse request",
			"error", err,
			"key", string(key),
		)
		return nil
	}
	if event.DocumentID == "" {
		h.logger.Error("parse request without document id", "key", string(key))
		return nil
	}
	if logger.RequestID(ctx) == "" {
		ctx = logger.WithRequestID(ctx, event.DocumentID)
	}
	log := logger.FromContext(ctx).With("doc_id", event.DocumentID)
	ctx, trace := tracing.Start(ctx, "kafka-parse", logger.RequestID(ctx))
	trace.Set("doc_id", event.DocumentID)
	defer trace.Finish()

	if h.saver != nil {
		doc := store.Document{ID: event.DocumentID, Title: event.Title, Content: event.Content}
		if err := h.saver.SaveDocument(ctx, doc); err != nil {
			h.complete(ctx, event.DocumentID, 0, err)
			return fmt.Errorf("saving document %s: %w", event.DocumentID, err)
		}
	}

	words, err := h.engine.Analyze(ctx, event.Content)
	if err != nil {
		log.Error("parse failed, dropping request", "error", err)
		h.complete(ctx, event.DocumentID, 0, err)
		return nil
	}

	err = resilience.Retry(ctx, "index-submit", h.retry, func(ctx context.Context) error {
		return h.engine.Submit(ctx, event.DocumentID, words)
	})
	if err != nil {
		h.complete(ctx, event.DocumentID, 0, err)
		if !apperrors.IsRetryable(err) {
			log.Error("index submission rejected, dropping request", "error", err)
			return nil
		}
		return fmt.Errorf("indexing document %s: %w", event.DocumentID, err)
	}

	h.complete(ctx, event.DocumentID, len(words), nil)
	log.Info("document indexed", "words", len(words))
	return nil
}

func (h *Handler) complete(ctx context.Context, documentID string, words int, cause error) {
	if h.publisher == nil {
		return
	}
	event := IndexCompleteEvent{
		DocumentID: documentID,
		Words:      words,
		Status:     StatusIndexed,
		FinishedAt: time.Now().UTC(),
	}
	if cause != nil {
		event.Status = StatusFailed
		event.Error = cause.Error()
	}
	if err := h.publisher.Publish(ctx, kafka.Event{Key: documentID, Value: event}); err != nil {
		h.logger.Error("failed to publish index-complete event",
			"doc_id", documentID,
			"status", event.Status,
			"error", err,
		)
	}
}
