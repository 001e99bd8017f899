// Package graph implements the agentic plan -> retrieve -> compress ->
// critique -> refine(loop) -> synthesize pipeline (spec.md §4.7-§4.8).
package graph

import (
	"github.com/meridian-ai/ragcore/internal/confidence"
	"github.com/meridian-ai/ragcore/internal/providers"
	"github.com/meridian-ai/ragcore/internal/rerank"
	"github.com/meridian-ai/ragcore/internal/retrieval"
)

// NodeConfig holds the retrieval widths and thresholds every node reads
// from (spec.md §6.4). It is loaded once from config.Config and passed
// down immutably.
type NodeConfig struct {
	KLex       int
	KVec       int
	KRetriever int
	KCritic    int
	MMRLambda  float64
	MaxIters   int

	ConfidenceWeights confidence.Weights
	AbstainThreshold  float64
	ClarifyThreshold  float64

	DefaultThresholdPercent           float64
	ExplicitSelectionThresholdPercent float64

	CompressionBudgetChars int
}

// Graph wires the node implementations to their backing collaborators.
// One Graph instance is shared across all queries; it holds no
// per-query mutable state.
type Graph struct {
	hybrid   *retrieval.Hybrid
	reranker *rerank.Reranker
	embed    providers.EmbeddingService
	llm      providers.LLMService
	cfg      NodeConfig
}

// New builds a Graph over the given collaborators and config.
func New(hybrid *retrieval.Hybrid, reranker *rerank.Reranker, embed providers.EmbeddingService, llm providers.LLMService, cfg NodeConfig) *Graph {
	return &Graph{hybrid: hybrid, reranker: reranker, embed: embed, llm: llm, cfg: cfg}
}
