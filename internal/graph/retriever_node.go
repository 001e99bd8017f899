package graph

import (
	"context"
	"fmt"

	"github.com/meridian-ai/ragcore/internal/corerr"
	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/retrieval"
	"github.com/meridian-ai/ragcore/internal/sanitize"
)

// rerankTopKRetriever is the reranker top_k at the retriever-node entry
// (spec.md §4.3).
const rerankTopKRetriever = 8

// Retrieve encodes the active sub-query (or the question on the first
// iteration), selects a retrieval strategy from cross_doc/doc_filter,
// reranks, diversifies with MMR, and writes the resulting candidates
// into state (spec.md §4.7).
func (g *Graph) Retrieve(ctx context.Context, state model.GraphState) (model.GraphState, error) {
	queryText := state.SubQuery
	if queryText == "" {
		queryText = state.Question
	}

	san := sanitize.Sanitize(queryText)

	embedding, err := g.embed.EmbedText(ctx, queryText)
	if err != nil {
		return state, fmt.Errorf("graph.Retrieve: %w: %v", corerr.ErrEmbeddingFailure, err)
	}

	var candidates []model.Candidate

	switch {
	case state.CrossDoc:
		candidates, err = g.hybrid.TwoStageMerge(ctx, queryText, san.LexicalQuery, embedding, state.EffectiveDocFilter(), nil, g.cfg.KRetriever)
	case len(state.EffectiveDocFilter()) > 0:
		candidates, err = g.hybrid.Retrieve(ctx, san.LexicalQuery, embedding, retrieval.Params{
			KLex: g.cfg.KLex, KVec: g.cfg.KVec, KOut: g.cfg.KRetriever,
			Filter: retrieval.Filter{DocIDs: state.EffectiveDocFilter(), ExcludeDocIDs: state.DocExclude},
		})
	default:
		candidates, err = g.hybrid.Retrieve(ctx, san.LexicalQuery, embedding, retrieval.Params{
			KLex: g.cfg.KLex, KVec: g.cfg.KVec, KOut: g.cfg.KRetriever,
			Filter: retrieval.Filter{ExcludeDocIDs: state.DocExclude},
		})
	}
	if err != nil {
		return state, err
	}

	reranked := g.reranker.Rerank(ctx, state.Question, candidates, rerankTopKRetriever)
	state.Candidates = retrieval.MMR(reranked, len(reranked), g.cfg.MMRLambda)
	return state, nil
}
