package tracker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/repository"
)

func TestSortSummariesByActivityDesc(t *testing.T) {
	now := time.Now()
	in := []model.ThreadSummary{
		{ThreadID: "a", LastActivity: now.Add(-2 * time.Hour)},
		{ThreadID: "b", LastActivity: now},
		{ThreadID: "c", LastActivity: now.Add(-1 * time.Hour)},
	}
	sortSummariesByActivityDesc(in)

	want := []string{"b", "c", "a"}
	for i, id := range want {
		if in[i].ThreadID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, in[i].ThreadID)
		}
	}
}

func setupTracker(t *testing.T) (*Tracker, func()) {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := repository.NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	migrationSQL, err := os.ReadFile("../../migrations/001_initial_schema.up.sql")
	if err != nil {
		pool.Close()
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(migrationSQL)); err != nil {
		pool.Close()
		t.Fatalf("apply migration: %v", err)
	}

	return New(pool), func() { pool.Close() }
}

func TestTracker_InsertUpdateGetArchive(t *testing.T) {
	tr, cleanup := setupTracker(t)
	defer cleanup()
	ctx := context.Background()

	threadID := "thread-tracker-test-1"
	id, err := tr.InsertOnStart(ctx, "user-1", threadID, "what is revenue?", model.EntryREST, model.PipelineDirect, false)
	if err != nil {
		t.Fatalf("InsertOnStart: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero record id")
	}

	err = tr.UpdateOnCompletion(ctx, id, "revenue was $1M", []string{"doc-1"}, map[string]any{"action": "answer"}, map[string]any{"iterations": 1})
	if err != nil {
		t.Fatalf("UpdateOnCompletion: %v", err)
	}

	rec, err := tr.GetThread(ctx, "user-1", threadID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if rec.FinalAnswer != "revenue was $1M" {
		t.Fatalf("unexpected final answer: %s", rec.FinalAnswer)
	}
	if rec.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}

	summaries, err := tr.ListThreads(ctx, "user-1", 10, false)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	found := false
	for _, s := range summaries {
		if s.ThreadID == threadID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected thread in list")
	}

	if err := tr.Archive(ctx, threadID, "user-1", true); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	summaries, err = tr.ListThreads(ctx, "user-1", 10, false)
	if err != nil {
		t.Fatalf("ListThreads after archive: %v", err)
	}
	for _, s := range summaries {
		if s.ThreadID == threadID {
			t.Fatal("archived thread should not appear by default")
		}
	}
}
