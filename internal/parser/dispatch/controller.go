package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

// ScanFunc scans one chunk of text.
type ScanFunc func(text []rune, c chunk.Chunk) (index.Occurrences, error)

// Controller fans chunk scans out to a Pool and waits for all of them.
type Controller struct {
	pool   *Pool
	scan   ScanFunc
	logger *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithScanFunc replaces the chunk scanner.
func WithScanFunc(fn ScanFunc) Option {
	return func(c *Controller) {
		c.scan = fn
	}
}

// NewController returns a Controller that runs scans on pool. The pool's
// lifecycle stays with the caller.
func NewController(pool *Pool, opts ...Option) *Controller {
	c := &Controller{
		pool: pool,
		scan: func(text []rune, ch chunk.Chunk) (index.Occurrences, error) {
			return tokenizer.Scan(text, ch), nil
		},
		logger: slog.Default().With("component", "scan-controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run scans every chunk of text and returns the partial results indexed by
// chunk position. If any scan fails, or ctx ends before all results are in,
// Run returns an error and no partial results. Scans already running are left
// to finish; their results are dropped.
func (c *Controller) Run(ctx context.Context, text []rune, chunks []chunk.Chunk) ([]index.Occurrences, error) {
	// Buffered for every chunk so workers never wait on an abandoned run.
	results := make(chan Result, len(chunks))
	submitted := 0
	for i, ch := range chunks {
		ch := ch
		task := func() (index.Occurrences, error) {
			return c.scan(text, ch)
		}
		if err := c.pool.Submit(ctx, i, task, results); err != nil {
			return nil, c.submitError(err, i, len(chunks))
		}
		submitted++
	}

	partials := make([]index.Occurrences, len(chunks))
	for received := 0; received < submitted; received++ {
		select {
		case res := <-results:
			if res.Err != nil {
				c.logger.Error("chunk scan failed",
					"chunk", res.Seq,
					"start", chunks[res.Seq].Start,
					"end", chunks[res.Seq].End,
					"error", res.Err,
				)
				return nil, fmt.Errorf("%w: chunk %d [%d,%d): %v",
					apperrors.ErrScanFailed, res.Seq, chunks[res.Seq].Start, chunks[res.Seq].End, res.Err)
			}
			partials[res.Seq] = res.Occurrences
		case <-ctx.Done():
			return nil, contextError(ctx.Err())
		}
	}
	return partials, nil
}

func (c *Controller) submitError(err error, seq, total int) error {
	if err == ErrPoolClosed {
		return fmt.Errorf("%w: submitting chunk %d of %d: %v", apperrors.ErrInternal, seq, total, err)
	}
	return contextError(err)
}

func contextError(err error) error {
	if err == context.DeadlineExceeded {
		return fmt.Errorf("%w: waiting for chunk scans: %v", apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("waiting for chunk scans: %w", err)
}
