package retrieval

import (
	"sort"

	"github.com/meridian-ai/ragcore/internal/model"
)

// rrfK is the standard Reciprocal Rank Fusion constant.
const rrfK = 60

// ReciprocalRankFusion is an alternate merge strategy to the linear
// s_hyb blend: score = Σ 1/(k + rank) across each list a chunk appears
// in. spec.md §4.2 states the linear blend as the default; RRF is kept
// as a standalone function for callers that prefer rank-based fusion over
// score-based fusion. Hybrid.Retrieve does not call it.
func ReciprocalRankFusion(lex, vec []model.Candidate) []model.Candidate {
	scores := make(map[string]float64)
	items := make(map[string]model.Candidate)
	var order []string

	accumulate := func(results []model.Candidate) {
		for rank, c := range results {
			if _, ok := items[c.ChunkID]; !ok {
				items[c.ChunkID] = c
				order = append(order, c.ChunkID)
			}
			scores[c.ChunkID] += 1.0 / float64(rrfK+rank+1)
		}
	}
	accumulate(lex)
	accumulate(vec)

	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		c := items[id]
		c.SHyb = scores[id]
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SHyb > out[j].SHyb })
	return out
}
