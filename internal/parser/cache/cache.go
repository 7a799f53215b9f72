// Package cache memoizes parse results by content hash. Parsing is a pure
// function of the content, so a hit can be returned for any document id.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
)

const keyPrefix = "parse:"

// Backend stores results by key. Implementations log their own failures and
// report them as misses.
type Backend interface {
	Get(ctx context.Context, key string) ([]index.WordOffsets, bool)
	Set(ctx context.Context, key string, words []index.WordOffsets)
}

// Cache puts singleflight in front of a Backend so concurrent parses of the
// same content run once. A nil *Cache always computes.
type Cache struct {
	backend Backend
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wraps backend. m may be nil.
func New(backend Backend, m *metrics.Metrics) *Cache {
	return &Cache{
		backend: backend,
		metrics: m,
		logger:  slog.Default().With("component", "parse-cache"),
	}
}

// Key returns the cache key for content.
func Key(content string) string {
	sum := sha256.Sum256([]byte(content))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached result for content or runs computeFn and
// stores its result. Errors are never cached. The returned slice is shared
// and must not be modified.
//
// A shared computation runs on a context detached from any one caller, so a
// caller that gives up does not fail the others; it returns its own context
// error while the computation finishes for the rest. computeFn is expected to
// apply its own deadline.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	content string,
	computeFn func(ctx context.Context) ([]index.WordOffsets, error),
) ([]index.WordOffsets, bool, error) {
	if c == nil {
		words, err := computeFn(ctx)
		return words, false, err
	}
	key := Key(content)
	if words, ok := c.backend.Get(ctx, key); ok {
		c.metrics.CacheLookup(true)
		return words, true, nil
	}
	c.metrics.CacheLookup(false)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if words, ok := c.backend.Get(detached, key); ok {
			return words, nil
		}
		words, err := computeFn(detached)
		if err != nil {
			return nil, err
		}
		c.backend.Set(detached, key, words)
		return words, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		if res.Shared {
			c.logger.Debug("parse shared with concurrent caller", "key", key)
		}
		return res.Val.([]index.WordOffsets), false, nil
	case <-ctx.Done():
		return nil, false, fmt.Errorf("waiting for parse of %s: %w", key, ctx.Err())
	}
}
