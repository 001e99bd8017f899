package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/meridian-ai/ragcore/internal/retrieval"
)

func setupChunkRepo(t *testing.T) (*ChunkRepo, func()) {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	migrationSQL, err := os.ReadFile("../../migrations/001_initial_schema.up.sql")
	if err != nil {
		pool.Close()
		t.Fatalf("read migration: %v", err)
	}

	var ensureErr error
	for attempt := 0; attempt < 5; attempt++ {
		if _, ensureErr = pool.Exec(ctx, string(migrationSQL)); ensureErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	if ensureErr != nil {
		pool.Close()
		t.Fatalf("setup schema after retries: %v", ensureErr)
	}

	return NewChunkRepo(pool), func() { pool.Close() }
}

// insertTestDoc/insertTestChunk write fixtures directly via SQL, since
// ingestion populates documents/chunks from outside the core and
// ChunkRepo exposes no insert path.
func insertTestDoc(t *testing.T, repo *ChunkRepo, title string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := repo.pool.Exec(context.Background(), `
		INSERT INTO documents (id, title, source_path, content_hash, created_at)
		VALUES ($1, $2, '', '', now())
	`, id, title)
	if err != nil {
		t.Fatalf("insert test doc: %v", err)
	}
	return id
}

func insertTestChunk(t *testing.T, repo *ChunkRepo, docID, text string, pageStart, pageEnd int, embedding []float32) string {
	t.Helper()
	id := uuid.New().String()
	_, err := repo.pool.Exec(context.Background(), `
		INSERT INTO chunks (id, doc_id, text, page_start, page_end, embedding, content_tsv)
		VALUES ($1, $2, $3, $4, $5, $6, to_tsvector('english', $3))
	`, id, docID, text, pageStart, pageEnd, pgvector.NewVector(embedding))
	if err != nil {
		t.Fatalf("insert test chunk: %v", err)
	}
	return id
}

func TestChunkRepo_DeleteByDocumentID(t *testing.T) {
	repo, cleanup := setupChunkRepo(t)
	defer cleanup()
	ctx := context.Background()

	docID := insertTestDoc(t, repo, "delete-test")
	vec := make([]float32, 768)
	vec[0] = 1.0
	insertTestChunk(t, repo, docID, "delete me", 1, 1, vec)

	count, err := repo.CountByDocumentID(ctx, docID)
	if err != nil {
		t.Fatalf("CountByDocumentID() error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if err := repo.DeleteByDocumentID(ctx, docID); err != nil {
		t.Fatalf("DeleteByDocumentID() error: %v", err)
	}

	count, _ = repo.CountByDocumentID(ctx, docID)
	if count != 0 {
		t.Errorf("count after delete = %d, want 0", count)
	}
}

func TestChunkRepo_CountByDocumentID_NoChunks(t *testing.T) {
	repo, cleanup := setupChunkRepo(t)
	defer cleanup()

	count, err := repo.CountByDocumentID(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("CountByDocumentID() error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for non-existent document", count)
	}
}

func TestChunkRepo_SimilaritySearch(t *testing.T) {
	repo, cleanup := setupChunkRepo(t)
	defer cleanup()
	ctx := context.Background()

	docID := insertTestDoc(t, repo, "similarity-test")

	vec1 := make([]float32, 768)
	vec1[100] = 1.0
	vec2 := make([]float32, 768)
	vec2[200] = 1.0

	insertTestChunk(t, repo, docID, "about machine learning", 1, 1, vec1)
	insertTestChunk(t, repo, docID, "about legal contracts", 2, 2, vec2)

	queryVec := make([]float32, 768)
	queryVec[100] = 1.0

	results, err := repo.SimilaritySearch(ctx, queryVec, 5, retrieval.Filter{DocIDs: []string{docID}})
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least 1 result")
	}
	if results[0].Text != "about machine learning" {
		t.Errorf("expected closest match first, got %q", results[0].Text)
	}
}

func TestChunkRepo_SimilaritySearch_DocFilterScoped(t *testing.T) {
	repo, cleanup := setupChunkRepo(t)
	defer cleanup()
	ctx := context.Background()

	docA := insertTestDoc(t, repo, "doc-a")
	docB := insertTestDoc(t, repo, "doc-b")

	vec := make([]float32, 768)
	vec[300] = 1.0
	insertTestChunk(t, repo, docA, "chunk in doc a", 1, 1, vec)
	insertTestChunk(t, repo, docB, "chunk in doc b", 1, 1, vec)

	results, err := repo.SimilaritySearch(ctx, vec, 10, retrieval.Filter{DocIDs: []string{docA}})
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	for _, r := range results {
		if r.DocID != docA {
			t.Errorf("expected only doc %s, got %s", docA, r.DocID)
		}
	}

	excluded, err := repo.SimilaritySearch(ctx, vec, 10, retrieval.Filter{ExcludeDocIDs: []string{docA}})
	if err != nil {
		t.Fatalf("SimilaritySearch(exclude) error: %v", err)
	}
	for _, r := range excluded {
		if r.DocID == docA {
			t.Errorf("doc %s should have been excluded", docA)
		}
	}
}
