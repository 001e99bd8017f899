package graph

import (
	"context"
	"fmt"

	"github.com/meridian-ai/ragcore/internal/confidence"
	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/providers"
)

const dontKnow = "I don't know."

const synthesizerSystemPrompt = "You answer questions using only the provided evidence. " +
	"Cite sources inline using [N] markers matching the evidence index. " +
	"If the evidence does not support an answer, say \"I don't know.\" Never fabricate citations."

// Synthesize decides pre-LLM whether to abstain outright, then either
// emits "I don't know." or calls the LLM with the compressed evidence
// and citation instructions (spec.md §4.7).
func (g *Graph) Synthesize(ctx context.Context, state model.GraphState) model.GraphState {
	percent, explicitSelection := legacyPercent(state)
	threshold := g.cfg.DefaultThresholdPercent
	if explicitSelection {
		threshold = g.cfg.ExplicitSelectionThresholdPercent
	}

	if percent < threshold {
		state.FinalAnswer = dontKnow
		state.Citations = nil
		return state
	}

	if g.llm == nil {
		state.FinalAnswer = dontKnow
		state.Citations = nil
		return state
	}

	prompt := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", state.Question, state.Evidence)
	answer, err := g.llm.Complete(ctx, synthesizerSystemPrompt, []providers.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil || answer == "" {
		state.FinalAnswer = dontKnow
		state.Citations = nil
		return state
	}

	state.FinalAnswer = answer
	state.Citations = buildCitations(state.Candidates)
	return state
}

// legacyPercent derives the synthesizer's pre-LLM gate (spec.md §4.6,
// §4.7): 100*max(s_final) percent.
func legacyPercent(state model.GraphState) (percent float64, explicitSelection bool) {
	return confidence.MaxSFinalPercent(state.Candidates), state.ExplicitDocSelection()
}

func buildCitations(candidates []model.Candidate) []model.CitationRef {
	citations := make([]model.CitationRef, 0, len(candidates))
	for i, c := range candidates {
		relevance := c.SCE
		if relevance == 0 {
			relevance = c.SHyb
		}
		excerpt := c.Text
		if len(excerpt) > 240 {
			excerpt = excerpt[:240]
		}
		citations = append(citations, model.CitationRef{
			Index:     i + 1,
			ChunkID:   c.ChunkID,
			DocID:     c.DocID,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Relevance: relevance,
			Excerpt:   excerpt,
		})
	}
	return citations
}
