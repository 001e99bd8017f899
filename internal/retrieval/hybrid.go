package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-ai/ragcore/internal/corerr"
	"github.com/meridian-ai/ragcore/internal/model"
)

// epsilon avoids zero-division during min-max normalization (spec.md §4.2).
const epsilon = 1e-9

// Params configures one hybrid retrieve call.
type Params struct {
	KLex   int
	KVec   int
	KOut   int
	Filter Filter
}

// Hybrid runs the two independent lexical/vector selections, normalizes
// and merges them, and orders the result by s_hyb (spec.md §4.2).
type Hybrid struct {
	lex LexicalSearcher
	vec VectorSearcher
}

// NewHybrid builds a Hybrid retriever over the given backends.
func NewHybrid(lex LexicalSearcher, vec VectorSearcher) *Hybrid {
	return &Hybrid{lex: lex, vec: vec}
}

// Retrieve executes the hybrid lexical+vector search and returns up to
// p.KOut candidates ordered by s_hyb descending.
func (h *Hybrid) Retrieve(ctx context.Context, lexQuery string, queryEmbedding []float32, p Params) ([]model.Candidate, error) {
	var lexResults, vecResults []model.Candidate

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexResults, err = h.lex.FullTextSearch(gCtx, lexQuery, p.KLex, p.Filter)
		return err
	})
	g.Go(func() error {
		var err error
		vecResults, err = h.vec.SimilaritySearch(gCtx, queryEmbedding, p.KVec, p.Filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieval.Hybrid.Retrieve: %w: %v", corerr.ErrStoreUnavailable, err)
	}

	slog.Debug("[RETRIEVER] hybrid search done",
		"lex_candidates", len(lexResults),
		"vec_candidates", len(vecResults),
	)

	normalizeLexical(lexResults)
	normalizeVector(vecResults)

	merged := merge(lexResults, vecResults)
	for i := range merged {
		merged[i].SHyb = 0.5*merged[i].SVec + 0.5*merged[i].SLex
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SHyb > merged[j].SHyb
	})

	if p.KOut > 0 && len(merged) > p.KOut {
		merged = merged[:p.KOut]
	}
	return merged, nil
}

// normalizeLexical min-max normalizes raw lexical scores (carried in SLex)
// into [0,1] within the result set.
func normalizeLexical(results []model.Candidate) {
	if len(results) == 0 {
		return
	}
	lo, hi := results[0].SLex, results[0].SLex
	for _, r := range results[1:] {
		if r.SLex < lo {
			lo = r.SLex
		}
		if r.SLex > hi {
			hi = r.SLex
		}
	}
	span := hi - lo
	for i := range results {
		results[i].SLex = (results[i].SLex - lo) / (span + epsilon)
	}
}

// normalizeVector remaps raw cosine distance (carried in SVec by the
// VectorSearcher) into a [0,1] similarity: (1 - distance)/2, since cosine
// distance spans [0,2] (spec.md §4.2).
func normalizeVector(results []model.Candidate) {
	for i := range results {
		results[i].SVec = (1 - results[i].SVec) / 2
	}
}

// stableSortByHyb orders candidates by s_hyb descending, preserving
// incoming order on ties (used by the two-stage merger's primary-wins
// dedup, spec.md §4.5).
func stableSortByHyb(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SHyb > candidates[j].SHyb
	})
}

// merge unions the two result sets by chunk_id. A chunk present in only
// one list defaults its missing side to 0. When both lists contain the
// chunk, the lexical entry is kept and takes the vector score (and the
// vector embedding if it has none). The output lists the lexical results
// in their order followed by the vector-only results; Retrieve's stable
// sort keeps that order on equal s_hyb, so ties are not broken by the
// better of a chunk's two rank positions.
func merge(lex, vec []model.Candidate) []model.Candidate {
	byID := make(map[string]*model.Candidate, len(lex)+len(vec))
	var order []string

	for i := range lex {
		c := lex[i]
		byID[c.ChunkID] = &c
		order = append(order, c.ChunkID)
	}
	for i := range vec {
		c := vec[i]
		if existing, ok := byID[c.ChunkID]; ok {
			existing.SVec = c.SVec
			if existing.Embedding == nil {
				existing.Embedding = c.Embedding
			}
			continue
		}
		byID[c.ChunkID] = &c
		order = append(order, c.ChunkID)
	}

	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
