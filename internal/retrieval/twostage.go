package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-ai/ragcore/internal/model"
)

// expansionCharBudget caps how much stage-one chunk text is folded into
// the stage-two expansion query (spec.md §4.5).
const expansionCharBudget = 500

// TwoStageMerge performs the cross-document retrieval strategy used when
// cross_doc=true (spec.md §4.5): an optional primary stage scoped to
// primaryDocIDs, followed by a corpus-wide expansion stage, deduplicated
// with primary-wins priority.
func (h *Hybrid) TwoStageMerge(ctx context.Context, question, lexQuery string, queryEmbedding []float32, primaryDocIDs []string, excludeChunkIDs []string, kOut int) ([]model.Candidate, error) {
	var primary []model.Candidate
	var err error

	if len(primaryDocIDs) > 0 {
		primary, err = h.Retrieve(ctx, lexQuery, queryEmbedding, Params{
			KLex: kOut, KVec: kOut, KOut: kOut,
			Filter: Filter{DocIDs: primaryDocIDs},
		})
		if err != nil {
			return nil, fmt.Errorf("retrieval.TwoStageMerge: primary stage: %w", err)
		}
	}

	expandedQuestion := buildExpansionQuery(question, primary)
	expandedLex := expandedQuestion
	if expandedQuestion != question {
		// The expansion lexical query is lexQuery plus a lowercased copy of
		// the appended chunk text; that text is not otherwise run through
		// the caller's sanitation.
		expandedLex = lexQuery + " " + strings.ToLower(expandedQuestion[len(question):])
	}

	expansion, err := h.Retrieve(ctx, expandedLex, queryEmbedding, Params{
		KLex: kOut, KVec: kOut, KOut: kOut,
		Filter: Filter{ExcludeDocIDs: nil},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval.TwoStageMerge: expansion stage: %w", err)
	}
	expansion = excludeChunks(expansion, excludeChunkIDs)

	return dedupPrimaryWins(primary, expansion, kOut), nil
}

// buildExpansionQuery concatenates the question with up to
// expansionCharBudget characters of the most relevant stage-one text.
// When stage one is empty, the expansion query equals the question.
func buildExpansionQuery(question string, primary []model.Candidate) string {
	if len(primary) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString(question)
	remaining := expansionCharBudget
	for _, c := range primary {
		if remaining <= 0 {
			break
		}
		text := c.Text
		if len(text) > remaining {
			text = text[:remaining]
		}
		b.WriteString(" ")
		b.WriteString(text)
		remaining -= len(text)
	}
	return b.String()
}

func excludeChunks(candidates []model.Candidate, excludeIDs []string) []model.Candidate {
	if len(excludeIDs) == 0 {
		return candidates
	}
	exclude := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = true
	}
	out := candidates[:0]
	for _, c := range candidates {
		if !exclude[c.ChunkID] {
			out = append(out, c)
		}
	}
	return out
}

// dedupPrimaryWins concatenates [primary ... expansion], deduplicates by
// chunk_id preserving first occurrence, and keeps the top kOut by s_hyb.
func dedupPrimaryWins(primary, expansion []model.Candidate, kOut int) []model.Candidate {
	seen := make(map[string]bool, len(primary)+len(expansion))
	merged := make([]model.Candidate, 0, len(primary)+len(expansion))

	for _, c := range primary {
		if !seen[c.ChunkID] {
			seen[c.ChunkID] = true
			merged = append(merged, c)
		}
	}
	for _, c := range expansion {
		if !seen[c.ChunkID] {
			seen[c.ChunkID] = true
			merged = append(merged, c)
		}
	}

	// primary entries retain priority in the stable sort below because
	// Go's sort.SliceStable preserves their earlier position on ties, but
	// ranking is still by s_hyb as stated in spec.md §4.5.
	stableSortByHyb(merged)

	if kOut > 0 && len(merged) > kOut {
		merged = merged[:kOut]
	}
	return merged
}
