// Package cache provides in-memory and Redis-backed caching for the
// retrieval pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-ai/ragcore/internal/model"
)

// AnswerResult is the cached unit: the graph's terminal state, trimmed to
// what a repeated question actually needs back (spec.md §4.8's
// FinalAnswer/Citations/Action/Confidence, plus the candidates a cache hit
// still wants available for citation rendering).
type AnswerResult struct {
	FinalAnswer string              `json:"finalAnswer"`
	Citations   []model.CitationRef `json:"citations"`
	Action      model.Action        `json:"action"`
	Confidence  float64             `json:"confidence"`
	Candidates  []model.Candidate   `json:"candidates"`
}

// AnswerCache is the interface both backends satisfy, so callers (the
// graph executor's caller, not the graph itself — the graph never
// consults a cache mid-run) can swap in-memory for Redis without
// touching call sites (SPEC_FULL.md domain-stack: a second backend
// behind the same interface, selected by config for multi-worker
// deployments where an in-process cache would be incoherent across
// workers).
type AnswerCache interface {
	Get(ctx context.Context, userID, query string, docFilter []string) (AnswerResult, bool)
	Set(ctx context.Context, userID, query string, docFilter []string, result AnswerResult)
	InvalidateUser(ctx context.Context, userID string)
	Stop()
}

// QueryCache caches AnswerResult by (userID, query, docFilter). Thread-safe
// via sync.RWMutex. Entries auto-expire after TTL.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*queryCacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

type queryCacheEntry struct {
	result    AnswerResult
	createdAt time.Time
	expiresAt time.Time
}

// NewQueryCache creates a QueryCache with the given TTL and starts
// background cleanup.
func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL()
	}
	c := &QueryCache{
		entries: make(map[string]*queryCacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns a cached AnswerResult if present and not expired. A query
// whose doc_filter differs from the cached entry's never matches, since
// the key folds doc_filter in (spec.md scope hints must never leak across
// differently-scoped questions).
func (c *QueryCache) Get(_ context.Context, userID, query string, docFilter []string) (AnswerResult, bool) {
	key := queryCacheKey(userID, query, docFilter)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return AnswerResult{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return AnswerResult{}, false
	}

	slog.Debug("[CACHE] hit",
		"user_id", userID,
		"query_hash", key[strings.LastIndex(key, ":")+1:],
		"age_ms", time.Since(entry.createdAt).Milliseconds(),
	)
	return entry.result, true
}

// Set stores an AnswerResult in the cache.
func (c *QueryCache) Set(_ context.Context, userID, query string, docFilter []string, result AnswerResult) {
	key := queryCacheKey(userID, query, docFilter)
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &queryCacheEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()

	slog.Debug("[CACHE] set",
		"user_id", userID,
		"query_hash", key[strings.LastIndex(key, ":")+1:],
		"ttl_s", int(c.ttl.Seconds()),
		"total_entries", c.Len(),
	)
}

// InvalidateUser removes all cached entries for a user. Call this when
// documents are uploaded, deleted, or re-indexed.
func (c *QueryCache) InvalidateUser(_ context.Context, userID string) {
	prefix := "qc:" + userID + ":"
	c.mu.Lock()
	count := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			count++
		}
	}
	c.mu.Unlock()

	if count > 0 {
		slog.Info("[CACHE] invalidated user", "user_id", userID, "entries_removed", count)
	}
}

// Len returns the number of entries in the cache.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the background cleanup goroutine.
func (c *QueryCache) Stop() {
	close(c.stopCh)
}

func (c *QueryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			before := len(c.entries)
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			after := len(c.entries)
			c.mu.Unlock()
			if before != after {
				slog.Debug("[CACHE] cleanup", "removed", before-after, "remaining", after)
			}
		case <-c.stopCh:
			return
		}
	}
}

// queryCacheKey builds a deterministic key:
// "qc:{userID}:{sha256(query+sorted(docFilter))}"
func queryCacheKey(userID, query string, docFilter []string) string {
	sorted := append([]string(nil), docFilter...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(sorted, ",")))
	return fmt.Sprintf("qc:%s:%x", userID, h[:8])
}

// RedisQueryCache is the Redis-backed AnswerCache, used in multi-worker
// deployments where an in-process map would desync across processes
// (SPEC_FULL.md domain-stack wiring for the teacher's otherwise-unused
// go-redis dependency).
type RedisQueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQueryCache wraps an existing go-redis client. The caller owns
// the client's lifecycle (Close), since it may be shared with other
// subsystems.
func NewRedisQueryCache(client *redis.Client, ttl time.Duration) *RedisQueryCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL()
	}
	return &RedisQueryCache{client: client, ttl: ttl}
}

func (c *RedisQueryCache) Get(ctx context.Context, userID, query string, docFilter []string) (AnswerResult, bool) {
	key := queryCacheKey(userID, query, docFilter)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("[CACHE] redis get failed", "error", err)
		}
		return AnswerResult{}, false
	}
	var result AnswerResult
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Warn("[CACHE] redis entry corrupt, discarding", "key", key, "error", err)
		return AnswerResult{}, false
	}
	return result, true
}

func (c *RedisQueryCache) Set(ctx context.Context, userID, query string, docFilter []string, result AnswerResult) {
	key := queryCacheKey(userID, query, docFilter)
	raw, err := json.Marshal(result)
	if err != nil {
		slog.Warn("[CACHE] redis marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("[CACHE] redis set failed", "error", err)
	}
}

func (c *RedisQueryCache) InvalidateUser(ctx context.Context, userID string) {
	prefix := "qc:" + userID + ":*"
	iter := c.client.Scan(ctx, 0, prefix, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("[CACHE] redis scan failed", "user_id", userID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("[CACHE] redis invalidate failed", "user_id", userID, "error", err)
		return
	}
	slog.Info("[CACHE] invalidated user", "user_id", userID, "entries_removed", len(keys))
}

// Stop is a no-op: the caller owns the underlying client's lifecycle.
func (c *RedisQueryCache) Stop() {}
