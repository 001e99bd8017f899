package retrieval

import "github.com/meridian-ai/ragcore/internal/model"

// MMR greedily selects a diverse subset of candidates, maximizing
// λ·s_ce − (1−λ)·max_cosine_to_already_selected at each step (spec.md
// §4.4). Candidates must already carry s_ce (post-rerank) and unit-norm
// embeddings. Deterministic given identical input ordering.
func MMR(candidates []model.Candidate, targetK int, lambda float64) []model.Candidate {
	n := len(candidates)
	if targetK > n {
		targetK = n
	}
	if targetK <= 0 {
		return nil
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	selected := make([]model.Candidate, 0, targetK)
	var selectedIdx []int

	for len(selected) < targetK {
		bestPos := -1
		bestScore := 0.0
		for pos, idx := range remaining {
			c := candidates[idx]
			maxSim := 0.0
			for _, sidx := range selectedIdx {
				sim := cosine(c.Embedding, candidates[sidx].Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.SCE - (1-lambda)*maxSim
			if bestPos == -1 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, candidates[idx])
		selectedIdx = append(selectedIdx, idx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

// cosine returns the dot product of two unit-norm embeddings. No
// re-normalization is performed, matching the stored-embeddings
// assumption in spec.md §4.4.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
