// Package providers defines the narrow interfaces the core reaches its
// external collaborators through (spec.md §1, §6.1): the embedding
// service and the LLM service. Ingestion, OCR, and training live outside
// the core entirely and have no representation here.
package providers

import "context"

// EmbeddingService embeds text/images into vectors of a fixed dimension
// D, deterministic for identical input within model precision. Failures
// are transient and propagate as corerr.ErrEmbeddingFailure.
type EmbeddingService interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, path string) ([]float32, error)
}

// LLMService completes a single-turn prompt. May return an empty string
// on failure; callers decide the fallback (spec.md §6.1).
type LLMService interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// Message is one turn in an LLM conversation.
type Message struct {
	Role    string
	Content string
}
