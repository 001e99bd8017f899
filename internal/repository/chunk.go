package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/retrieval"
)

// ChunkRepo implements retrieval.VectorSearcher over the chunks table
// (spec.md §6.3), scoped by the doc_filter/doc_exclude hints carried on
// retrieval.Filter rather than the teacher's per-user privilege tiers.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

var _ retrieval.VectorSearcher = (*ChunkRepo)(nil)

// SimilaritySearch finds the top-K chunks nearest to queryEmbedding by
// cosine distance (spec.md §4.2). Candidate.SVec carries the raw cosine
// distance; retrieval.Hybrid performs the [0,1] similarity remap.
func (r *ChunkRepo) SimilaritySearch(ctx context.Context, queryEmbedding []float32, k int, filter retrieval.Filter) ([]model.Candidate, error) {
	embedding := pgvector.NewVector(queryEmbedding)

	query := `
		SELECT c.id, c.doc_id, c.text, c.page_start, c.page_end,
			c.embedding <=> $1::vector AS distance
		FROM chunks c
		WHERE 1=1`
	args := []any{embedding}
	query, args = appendFilter(query, args, "c.doc_id", filter)
	query += fmt.Sprintf(" ORDER BY c.embedding <=> $1::vector LIMIT $%d", len(args)+1)
	args = append(args, k)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.ChunkRepo.SimilaritySearch: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.Text, &c.PageStart, &c.PageEnd, &c.SVec); err != nil {
			return nil, fmt.Errorf("repository.ChunkRepo.SimilaritySearch: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ChunkRepo.SimilaritySearch: %w", err)
	}

	slog.Debug("[CHUNK-REPO] similarity search", "k", k, "results", len(out))
	return out, nil
}

// appendFilter folds doc_filter/doc_exclude into a WHERE clause, using
// positional placeholders continuing from the args already present.
func appendFilter(query string, args []any, column string, filter retrieval.Filter) (string, []any) {
	if len(filter.DocIDs) > 0 {
		args = append(args, filter.DocIDs)
		query += fmt.Sprintf(" AND %s = ANY($%d)", column, len(args))
	}
	if len(filter.ExcludeDocIDs) > 0 {
		args = append(args, filter.ExcludeDocIDs)
		query += fmt.Sprintf(" AND NOT (%s = ANY($%d))", column, len(args))
	}
	return query, args
}

// DeleteByDocumentID removes all chunks for a document. Ingestion-time
// operation, exposed here because the core's migration/admin surface
// needs a way to clear a re-indexed document's chunks.
func (r *ChunkRepo) DeleteByDocumentID(ctx context.Context, docID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE doc_id = $1`, docID)
	if err != nil {
		return fmt.Errorf("repository.ChunkRepo.DeleteByDocumentID: %w", err)
	}
	return nil
}

// CountByDocumentID returns the number of chunks for a document.
func (r *ChunkRepo) CountByDocumentID(ctx context.Context, docID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE doc_id = $1`, docID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository.ChunkRepo.CountByDocumentID: %w", err)
	}
	return count, nil
}
