package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// LLMCrossEncoder adapts an LLMService into rerank.CrossEncoder by asking
// it to score (question, chunk) relevance directly, in the style of the
// scoring prompt other cross-encoder-less retrieval stacks use when no
// dedicated reranking model is deployed. The returned probability is
// converted to a logit so it composes with rerank's sigmoid mapping.
type LLMCrossEncoder struct {
	llm LLMService
}

// NewLLMCrossEncoder wraps llm as a cross-encoder scorer.
func NewLLMCrossEncoder(llm LLMService) *LLMCrossEncoder {
	return &LLMCrossEncoder{llm: llm}
}

type crossEncoderScore struct {
	Score float64 `json:"score"`
}

// Score asks the LLM to rate (question, chunkText) relevance in [0,1]
// and returns the corresponding logit.
func (c *LLMCrossEncoder) Score(ctx context.Context, question, chunkText string) (float64, error) {
	prompt := "Rate the relevance of the passage to the query on a scale of 0.0 to 1.0.\n" +
		"Query: " + question + "\n" +
		"Passage: " + chunkText + "\n" +
		`Respond with only a JSON object: {"score": <float>}`

	raw, err := c.llm.Complete(ctx, "You are a precise relevance scorer. Output only JSON.", []Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return 0, fmt.Errorf("providers.LLMCrossEncoder.Score: %w", err)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed crossEncoderScore
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return 0, fmt.Errorf("providers.LLMCrossEncoder.Score: parse %q: %w", raw, err)
	}

	p := parsed.Score
	if p <= 0 {
		p = 1e-6
	}
	if p >= 1 {
		p = 1 - 1e-6
	}
	return math.Log(p / (1 - p)), nil
}
