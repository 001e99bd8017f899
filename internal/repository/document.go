package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ai/ragcore/internal/model"
)

// DocumentRepo reads the documents table (spec.md §6.3). Ingestion,
// chunking, and OCR write this table from outside the core (spec.md
// §1 Non-goals); the core only ever reads it, for the planner's
// single-document context hint and for doc_filter/doc_exclude scoping
// metadata.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepo creates a DocumentRepo.
func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

// GetByID returns a single document.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (model.Document, error) {
	var d model.Document
	var metaJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, source_path, content_hash, metadata, created_at
		FROM documents WHERE id = $1
	`, id).Scan(&d.ID, &d.Title, &d.SourcePath, &d.ContentHash, &metaJSON, &d.CreatedAt)
	if err != nil {
		return model.Document{}, fmt.Errorf("repository.DocumentRepo.GetByID: %w", err)
	}
	d.Metadata = json.RawMessage(metaJSON)
	return d, nil
}

// ListByIDs returns documents matching the given IDs, in no particular
// order. Used to resolve doc_filter/uploaded_doc_ids/selected_doc_ids
// into titles for display.
func (r *DocumentRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, source_path, content_hash, metadata, created_at
		FROM documents WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository.DocumentRepo.ListByIDs: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var metaJSON []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.SourcePath, &d.ContentHash, &metaJSON, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.DocumentRepo.ListByIDs: scan: %w", err)
		}
		d.Metadata = json.RawMessage(metaJSON)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.DocumentRepo.ListByIDs: %w", err)
	}
	return docs, nil
}

// FirstChunkText returns the text of a document's earliest chunk by page,
// truncated by the caller as needed for a planner preview.
func (r *DocumentRepo) FirstChunkText(ctx context.Context, docID string) (string, error) {
	var text string
	err := r.pool.QueryRow(ctx, `
		SELECT text FROM chunks WHERE doc_id = $1 ORDER BY page_start ASC LIMIT 1
	`, docID).Scan(&text)
	if err != nil {
		return "", fmt.Errorf("repository.DocumentRepo.FirstChunkText: %w", err)
	}
	return text, nil
}
