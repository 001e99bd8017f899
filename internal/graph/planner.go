package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/providers"
)

const plannerSystemPrompt = "You plan how to answer a question from a document corpus. " +
	"Given the question and optional document context, respond with a short plan of a few sentences describing what to look for. Do not answer the question itself."

// Plan emits a short plan string guiding retrieval. Pure LLM call;
// failure degrades to plan = question (spec.md §4.7).
func (g *Graph) Plan(ctx context.Context, state model.GraphState, docTitle, docPreview string) model.GraphState {
	if g.llm == nil {
		state.Plan = state.Question
		return state
	}

	prompt := fmt.Sprintf("Question: %s", state.Question)
	if docTitle != "" {
		prompt += fmt.Sprintf("\nScoped document: %s", docTitle)
		if docPreview != "" {
			prompt += fmt.Sprintf("\nFirst-page preview: %s", truncate(docPreview, 800))
		}
	}

	plan, err := g.llm.Complete(ctx, plannerSystemPrompt, []providers.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil || strings.TrimSpace(plan) == "" {
		state.Plan = state.Question
		return state
	}

	state.Plan = plan
	return state
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
