package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	pkgredis "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/redis"
)

// Redis is a Backend shared between parser replicas. Values are JSON.
type Redis struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *pkgredis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "parse-cache-redis"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]index.WordOffsets, bool) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			r.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var words []index.WordOffsets
	if err := json.Unmarshal(data, &words); err != nil {
		r.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return words, true
}

func (r *Redis) Set(ctx context.Context, key string, words []index.WordOffsets) {
	data, err := json.Marshal(words)
	if err != nil {
		r.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Forget drops the cached result for one piece of content.
func (r *Redis) Forget(ctx context.Context, content string) error {
	key := Key(content)
	if err := r.client.Del(ctx, key); err != nil {
		return fmt.Errorf("forgetting %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every cached parse result. Keys depend on content
// only, so results go stale when normalization rules change.
func (r *Redis) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := r.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating parse cache: %w", err)
	}
	r.logger.Info("parse cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}
