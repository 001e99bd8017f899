package graph

import (
	"github.com/meridian-ai/ragcore/internal/confidence"
	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/retrieval"
	"github.com/meridian-ai/ragcore/internal/sanitize"
)

// Route is the critic's decision about which node runs next.
type Route string

const (
	RouteSynthesize Route = "synthesize"
	RouteRefine     Route = "refine"
)

// Critique narrows the retriever's candidates to the final scored set
// C_K (via MMR to k_critic), runs the confidence scorer, and decides
// whether to synthesize or refine (spec.md §4.7).
func (g *Graph) Critique(state model.GraphState) (model.GraphState, Route) {
	ck := retrieval.MMR(state.Candidates, g.cfg.KCritic, g.cfg.MMRLambda)
	state.Candidates = ck

	terms := sanitize.Sanitize(state.Question).Terms
	result := confidence.Score(ck, terms, state.FinalAnswer, g.cfg.ConfidenceWeights, confidence.Thresholds{
		Abstain: g.cfg.AbstainThreshold,
		Clarify: g.cfg.ClarifyThreshold,
	})

	state.Confidence = result.P
	state.Action = result.Action

	if result.Action == model.ActionAnswer {
		return state, RouteSynthesize
	}
	if state.Iteration >= g.cfg.MaxIters {
		return state, RouteSynthesize
	}
	return state, RouteRefine
}
