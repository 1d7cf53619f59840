package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxEntries = 1000

// Memory is an in-process LRU cache with per-entry expiry.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a cache holding at most maxEntries bodies for ttl each.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	body, ok := m.lru.Get(key)
	return body, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, body []byte) error {
	m.lru.Add(key, body)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {
	m.lru.Purge()
}
