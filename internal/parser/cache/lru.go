package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
)

// LRU is an in-process Backend bounded by entry count.
type LRU struct {
	lru *lru.Cache[string, []index.WordOffsets]
}

// NewLRU creates an LRU backend holding at most size results.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []index.WordOffsets](size)
	if err != nil {
		return nil, err
	}
	return &LRU{lru: c}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]index.WordOffsets, bool) {
	return l.lru.Get(key)
}

func (l *LRU) Set(_ context.Context, key string, words []index.WordOffsets) {
	l.lru.Add(key, words)
}

// Len returns the number of cached results.
func (l *LRU) Len() int {
	return l.lru.Len()
}
