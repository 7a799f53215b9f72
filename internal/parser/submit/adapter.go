// Package submit turns a parse result into index entries and hands them to
// the Document Store as a single batch.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

// Store is the part of store.DocumentStore the adapter writes to.
type Store interface {
	SaveIndexEntries(ctx context.Context, documentID string, entries []index.Entry) error
}

// Adapter submits index batches through a circuit breaker. It never retries;
// callers that can afford to wait wrap Submit in resilience.Retry.
type Adapter struct {
	store   Store
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Adapter. m may be nil. Batches the store rejects do not
// count against the circuit; the store answered them.
func New(store Store, cfg resilience.CircuitBreakerConfig, m *metrics.Metrics) *Adapter {
	cfg.IsFailure = func(err error) bool {
		return !apperrors.IsRejection(err) && !errors.Is(err, context.Canceled)
	}
	cfg.OnStateChange = func(name string, _, to resilience.State) {
		m.BreakerState(name, int(to))
	}
	return &Adapter{
		store:   store,
		breaker: resilience.NewCircuitBreaker("document-store", cfg),
		metrics: m,
		logger:  slog.Default().With("component", "submit"),
	}
}

// Breaker exposes the circuit breaker for readiness reporting.
func (a *Adapter) Breaker() *resilience.CircuitBreaker {
	return a.breaker
}

// Entries builds one entry per word with its offsets serialized as a JSON
// array, e.g. "[0,5,10]".
func Entries(documentID string, words []index.WordOffsets) ([]index.Entry, error) {
	entries := make([]index.Entry, 0, len(words))
	for _, w := range words {
		if len(w.Offsets) == 0 {
			continue
		}
		raw, err := json.Marshal(w.Offsets)
		if err != nil {
			return nil, fmt.Errorf("encoding offsets of %q: %w", w.Word, err)
		}
		entries = append(entries, index.Entry{
			Word:       w.Word,
			DocumentID: documentID,
			Offsets:    string(raw),
		})
	}
	return entries, nil
}

// Submit sends the whole batch in one store call. An empty batch is a
// successful no-op. Every failure, including an open circuit, wraps
// apperrors.ErrSubmission.
func (a *Adapter) Submit(ctx context.Context, documentID string, words []index.WordOffsets) error {
	entries, err := Entries(documentID, words)
	if err != nil {
		a.metrics.Submission("error")
		return apperrors.Submission(err)
	}
	if len(entries) == 0 {
		a.metrics.Submission("skipped")
		a.logger.Debug("empty batch not submitted", "doc_id", documentID)
		return nil
	}

	err = a.breaker.Execute(func() error {
		return a.store.SaveIndexEntries(ctx, documentID, entries)
	})
	if err != nil {
		a.metrics.Submission("error")
		a.logger.Warn("index submission failed",
			"doc_id", documentID,
			"entries", len(entries),
			"error", err,
		)
		return apperrors.Submission(err)
	}
	a.metrics.Submission("ok")
	a.logger.Debug("index batch submitted", "doc_id", documentID, "entries", len(entries))
	return nil
}
