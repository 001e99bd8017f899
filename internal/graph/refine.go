package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/providers"
	"github.com/meridian-ai/ragcore/internal/sanitize"
)

const refineSystemPrompt = "You refine a search sub-query to target gaps in retrieved evidence. " +
	"Given the original question, the current sub-query, and the candidate evidence so far, " +
	"respond with only a single improved sub-query, distinct from the current one."

// Refine produces a refined sub-query targeting gaps in the current
// evidence, increments the iteration counter, and never leaves SubQuery
// unchanged (spec.md §4.7). Only SubQuery is ever rewritten; Plan is
// fixed once the planner runs.
func (g *Graph) Refine(ctx context.Context, state model.GraphState) model.GraphState {
	lastSubQuery := state.SubQuery
	if lastSubQuery == "" {
		lastSubQuery = state.Question
	}

	newSubQuery := g.llmRefine(ctx, state, lastSubQuery)
	reason := "llm refinement"

	if newSubQuery == "" || strings.EqualFold(strings.TrimSpace(newSubQuery), strings.TrimSpace(lastSubQuery)) {
		newSubQuery = fallbackAugment(state.Question, lastSubQuery)
		reason = "term-augmented fallback"
	}

	state.Iteration++
	state.SubQuery = newSubQuery
	state.Refinements = append(state.Refinements, model.Refinement{
		Iteration: state.Iteration,
		SubQuery:  newSubQuery,
		Reason:    reason,
	})
	return state
}

func (g *Graph) llmRefine(ctx context.Context, state model.GraphState, lastSubQuery string) string {
	if g.llm == nil {
		return ""
	}

	prompt := fmt.Sprintf(
		"Original question: %s\nCurrent sub-query: %s\nEvidence so far:\n%s",
		state.Question, lastSubQuery, state.Evidence,
	)
	refined, err := g.llm.Complete(ctx, refineSystemPrompt, []providers.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(refined)
}

// fallbackAugment appends the first sanitized question term not already
// present in lastSubQuery, degrading gracefully when the LLM refinement
// is unavailable or produces a no-op (spec.md §4.7).
func fallbackAugment(question, lastSubQuery string) string {
	terms := sanitize.Sanitize(question).Terms
	lower := strings.ToLower(lastSubQuery)

	for _, term := range terms {
		if !strings.Contains(lower, term) {
			return lastSubQuery + " " + term
		}
	}
	return lastSubQuery + " "
}
