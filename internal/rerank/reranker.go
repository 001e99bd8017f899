// Package rerank scores (question, chunk) pairs with a cross-encoder
// model and orders candidates by the resulting s_ce (spec.md §4.3).
package rerank

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/meridian-ai/ragcore/internal/model"
)

// defaultConcurrency bounds the number of in-flight cross-encoder calls.
const defaultConcurrency = 4

// CrossEncoder scores a single (question, chunkText) pair, returning a
// raw logit. Implementations talk to the model provider; failures are
// handled per-pair by Reranker, never surfaced as a hard error from it.
type CrossEncoder interface {
	Score(ctx context.Context, question, chunkText string) (float64, error)
}

// Reranker applies a CrossEncoder over a candidate set.
type Reranker struct {
	ce CrossEncoder
}

// New builds a Reranker over the given cross-encoder. ce may be nil, in
// which case Rerank always falls back to s_hyb for every candidate.
func New(ce CrossEncoder) *Reranker {
	return &Reranker{ce: ce}
}

// Rerank scores every candidate against question, clamps topK to the
// candidate count, and returns the topK candidates ordered by s_ce
// descending with ties broken by incoming order (spec.md §4.3).
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []model.Candidate, topK int) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	if r.ce == nil {
		return fallbackAll(candidates, topK)
	}

	scored := make([]model.Candidate, len(candidates))
	copy(scored, candidates)

	sem := make(chan struct{}, defaultConcurrency)
	var wg sync.WaitGroup
	for i := range scored {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			logit, err := r.ce.Score(ctx, question, scored[i].Text)
			if err != nil {
				scored[i].SCE = scored[i].SHyb
				return
			}
			scored[i].SCE = sigmoid(logit)
		}(i)
	}
	wg.Wait()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SCE > scored[j].SCE
	})

	if topK <= 0 || topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// fallbackAll assigns s_ce = s_hyb for every candidate, used when no
// cross-encoder is configured at all.
func fallbackAll(candidates []model.Candidate, topK int) []model.Candidate {
	out := make([]model.Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].SCE = out[i].SHyb
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SCE > out[j].SCE })
	if topK <= 0 || topK > len(out) {
		topK = len(out)
	}
	return out[:topK]
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
