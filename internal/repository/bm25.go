package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/retrieval"
)

// LexicalRepo implements retrieval.LexicalSearcher using PostgreSQL
// ts_vector full-text search over the chunks table's content_tsv column
// (GIN-indexed, spec.md §6.3).
type LexicalRepo struct {
	pool *pgxpool.Pool
}

// NewLexicalRepo creates a LexicalRepo.
func NewLexicalRepo(pool *pgxpool.Pool) *LexicalRepo {
	return &LexicalRepo{pool: pool}
}

var _ retrieval.LexicalSearcher = (*LexicalRepo)(nil)

// FullTextSearch finds chunks matching lexQuery via ts_rank_cd, scoped by
// doc_filter/doc_exclude (spec.md §4.2).
func (r *LexicalRepo) FullTextSearch(ctx context.Context, lexQuery string, k int, filter retrieval.Filter) ([]model.Candidate, error) {
	query := `
		SELECT c.id, c.doc_id, c.text, c.page_start, c.page_end,
			ts_rank_cd(c.content_tsv, plainto_tsquery('english', $1)) AS rank
		FROM chunks c
		WHERE c.content_tsv @@ plainto_tsquery('english', $1)`
	args := []any{lexQuery}
	query, args = appendFilter(query, args, "c.doc_id", filter)
	query += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args)+1)
	args = append(args, k)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.LexicalRepo.FullTextSearch: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.Text, &c.PageStart, &c.PageEnd, &c.SLex); err != nil {
			return nil, fmt.Errorf("repository.LexicalRepo.FullTextSearch: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.LexicalRepo.FullTextSearch: %w", err)
	}

	slog.Debug("[LEXICAL-REPO] full-text search", "k", k, "results", len(out))
	return out, nil
}
