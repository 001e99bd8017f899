package cache

import (
	"context"
	"testing"
	"time"

	"github.com/meridian-ai/ragcore/internal/model"
)

func makeResult(docID string) AnswerResult {
	return AnswerResult{
		FinalAnswer: "the answer cites " + docID,
		Citations: []model.CitationRef{
			{Index: 1, ChunkID: "chunk-1", DocID: docID, Relevance: 0.9},
		},
		Action:     model.ActionAnswer,
		Confidence: 0.9,
		Candidates: []model.Candidate{
			{ChunkID: "chunk-1", DocID: docID, Text: "test content"},
		},
	}
}

func TestQueryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	_, ok := c.Get(ctx, "user-1", "what is revenue?", nil)
	if ok {
		t.Fatal("expected cache miss on empty cache")
	}

	c.Set(ctx, "user-1", "what is revenue?", nil, makeResult("revenue.pdf"))

	got, ok := c.Get(ctx, "user-1", "what is revenue?", nil)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got.Candidates) != 1 || got.Candidates[0].DocID != "revenue.pdf" {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestQueryCache_DocFilterSeparation(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	c.Set(ctx, "user-1", "query", nil, makeResult("unscoped.pdf"))
	c.Set(ctx, "user-1", "query", []string{"doc-a"}, makeResult("scoped.pdf"))

	got, ok := c.Get(ctx, "user-1", "query", nil)
	if !ok || got.Candidates[0].DocID != "unscoped.pdf" {
		t.Fatal("unscoped query returned wrong result")
	}

	got, ok = c.Get(ctx, "user-1", "query", []string{"doc-a"})
	if !ok || got.Candidates[0].DocID != "scoped.pdf" {
		t.Fatal("doc-filtered query returned wrong result")
	}
}

func TestQueryCache_DocFilterOrderInsensitive(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	c.Set(ctx, "user-1", "query", []string{"doc-a", "doc-b"}, makeResult("ab.pdf"))

	got, ok := c.Get(ctx, "user-1", "query", []string{"doc-b", "doc-a"})
	if !ok || got.Candidates[0].DocID != "ab.pdf" {
		t.Fatal("doc_filter order should not affect the cache key")
	}
}

func TestQueryCache_UserIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	c.Set(ctx, "user-1", "query", nil, makeResult("user1.pdf"))

	_, ok := c.Get(ctx, "user-2", "query", nil)
	if ok {
		t.Fatal("user-2 should not see user-1's cache")
	}
}

func TestQueryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(50 * time.Millisecond)
	defer c.Stop()

	c.Set(ctx, "user-1", "query", nil, makeResult("test.pdf"))

	_, ok := c.Get(ctx, "user-1", "query", nil)
	if !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	_, ok = c.Get(ctx, "user-1", "query", nil)
	if ok {
		t.Fatal("expected cache miss after expiry")
	}
}

func TestQueryCache_InvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	c.Set(ctx, "user-1", "query-a", nil, makeResult("a.pdf"))
	c.Set(ctx, "user-1", "query-b", nil, makeResult("b.pdf"))
	c.Set(ctx, "user-2", "query-a", nil, makeResult("other.pdf"))

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}

	c.InvalidateUser(ctx, "user-1")

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after invalidation, got %d", c.Len())
	}

	_, ok := c.Get(ctx, "user-1", "query-a", nil)
	if ok {
		t.Fatal("user-1 cache should be invalidated")
	}

	_, ok = c.Get(ctx, "user-2", "query-a", nil)
	if !ok {
		t.Fatal("user-2 cache should survive")
	}
}

func TestQueryCache_Len(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(1 * time.Hour)
	defer c.Stop()

	if c.Len() != 0 {
		t.Fatal("expected empty cache")
	}

	c.Set(ctx, "u1", "q1", nil, makeResult("a.pdf"))
	c.Set(ctx, "u1", "q2", nil, makeResult("b.pdf"))

	if c.Len() != 2 {
		t.Fatalf("expected 2, got %d", c.Len())
	}
}

func TestQueryCacheKey_Deterministic(t *testing.T) {
	k1 := queryCacheKey("user-1", "hello world", nil)
	k2 := queryCacheKey("user-1", "hello world", nil)
	if k1 != k2 {
		t.Fatalf("cache key should be deterministic: %s != %s", k1, k2)
	}

	k3 := queryCacheKey("user-1", "hello world", []string{"doc-a"})
	if k1 == k3 {
		t.Fatal("different doc_filter should produce different key")
	}

	k4 := queryCacheKey("user-2", "hello world", nil)
	if k1 == k4 {
		t.Fatal("different userID should produce different key")
	}
}

var _ AnswerCache = (*QueryCache)(nil)
var _ AnswerCache = (*RedisQueryCache)(nil)
