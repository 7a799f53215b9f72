// Package parser runs the parse pipeline: normalize, plan chunks, scan them
// in parallel, merge the partial results and submit the batch.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/dispatch"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/merger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/normalizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/tracing"
)

// Submitter hands a finished parse to the Document Store.
type Submitter interface {
	Submit(ctx context.Context, documentID string, words []index.WordOffsets) error
}

type Engine struct {
	planner    chunk.Planner
	controller *dispatch.Controller
	submitter  Submitter
	cache      *cache.Cache
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCache memoizes Analyze results by content.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithTimeout bounds the analysis of a single document. Zero means no bound
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine wires the pipeline. The controller's pool is owned by the caller.
func NewEngine(planner chunk.Planner, controller *dispatch.Controller, submitter Submitter, opts ...Option) *Engine {
	e := &Engine{
		planner:    planner,
		controller: controller,
		submitter:  submitter,
		logger:     slog.Default().With("component", "parser"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze returns every word of content with its ascending offsets into the
// normalized text, ordered by word. Nothing is submitted. On error no partial
// result is returned.
//
// With a cache, concurrent calls for the same content share one analysis
// that runs under the engine timeout alone; each caller still stops waiting
// when its own context ends.
func (e *Engine) Analyze(ctx context.Context, content string) ([]index.WordOffsets, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	words, hit, err := e.cache.GetOrCompute(ctx, content, func(ctx context.Context) ([]index.WordOffsets, error) {
		ctx, cancel := e.withTimeout(ctx)
		defer cancel()
		return e.analyze(ctx, content)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrTimeout) {
			err = fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, err
	}
	if hit {
		logger.FromContext(ctx).Debug("parse served from cache", "words", len(words))
	}
	return words, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) analyze(ctx context.Context, content string) ([]index.WordOffsets, error) {
	done := tracing.Stage(ctx, "normalize")
	text := normalizer.Normalize(content)
	e.metrics.ObserveStage("normalize", done().Seconds())

	done = tracing.Stage(ctx, "plan")
	chunks := e.planner.Plan(text)
	e.metrics.ObserveStage("plan", done().Seconds())

	done = tracing.Stage(ctx, "scan")
	partials, err := e.controller.Run(ctx, text, chunks)
	e.metrics.ObserveStage("scan", done().Seconds())
	if err != nil {
		return nil, err
	}

	done = tracing.Stage(ctx, "merge")
	words := merger.Flatten(merger.Merge(partials))
	e.metrics.ObserveStage("merge", done().Seconds())

	e.metrics.ParseShape(len(chunks), len(words))
	logger.FromContext(ctx).Debug("document analyzed",
		"chars", len(text),
		"chunks", len(chunks),
		"words", len(words),
	)
	return words, nil
}

// Parse analyzes doc and submits the result as one batch. A scan failure
// means nothing is submitted. A submission failure wraps
// apperrors.ErrSubmission so callers can retry just that step.
func (e *Engine) Parse(ctx context.Context, doc index.Document) ([]index.WordOffsets, error) {
	if doc.ID == "" {
		e.metrics.ParseResult("error")
		return nil, fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	log := logger.FromContext(ctx).With("doc_id", doc.ID)

	words, err := e.Analyze(ctx, doc.Content)
	if err != nil {
		e.metrics.ParseResult(resultLabel(err))
		log.Error("parse failed", "error", err)
		return nil, fmt.Errorf("parsing document %s: %w", doc.ID, err)
	}

	if err := e.Submit(ctx, doc.ID, words); err != nil {
		e.metrics.ParseResult(resultLabel(err))
		return nil, err
	}
	e.metrics.ParseResult("ok")
	log.Info("document parsed", "words", len(words))
	return words, nil
}

// Submit hands an already analyzed result to the Document Store. The Kafka
// consumer calls it directly when retrying a failed submission.
func (e *Engine) Submit(ctx context.Context, documentID string, words []index.WordOffsets) error {
	done := tracing.Stage(ctx, "submit")
	err := e.submitter.Submit(ctx, documentID, words)
	e.metrics.ObserveStage("submit", done().Seconds())
	if err != nil {
		logger.FromContext(ctx).Error("index submission failed", "doc_id", documentID, "error", err)
		return fmt.Errorf("submitting index of document %s: %w", documentID, err)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrScanFailed):
		return "scan_error"
	case errors.Is(err, apperrors.ErrSubmission):
		return "submit_error"
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
