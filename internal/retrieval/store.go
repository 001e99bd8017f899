// Package retrieval implements hybrid lexical+vector retrieval, MMR
// diversification, and the two-stage cross-document merger (spec.md
// §4.2, §4.4, §4.5).
package retrieval

import (
	"context"

	"github.com/meridian-ai/ragcore/internal/model"
)

// Filter scopes a search to a document subset, mirroring doc_filter /
// doc_exclude from spec.md §4.2.
type Filter struct {
	DocIDs        []string
	ExcludeDocIDs []string
}

// LexicalSearcher ranks chunks by trigram/BM25-style similarity against
// the lexical query text. Raw scores need not be normalized; the hybrid
// retriever min-max normalizes them within the result set.
type LexicalSearcher interface {
	FullTextSearch(ctx context.Context, lexQuery string, k int, filter Filter) ([]model.Candidate, error)
}

// VectorSearcher ranks chunks by cosine distance to a query embedding.
// Implementations populate Candidate.SVec with the raw cosine distance
// (not similarity); the hybrid retriever performs the [0,1] remap.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]model.Candidate, error)
}
