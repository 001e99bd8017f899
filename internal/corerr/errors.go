// Package corerr defines the sentinel error values the core's subsystems
// wrap and propagate. Callers use errors.Is against these sentinels rather
// than matching on message text; every wrap follows the teacher convention
// of fmt.Errorf("pkg.Func: %w", err).
package corerr

import "errors"

var (
	// ErrConfig marks a fatal misconfiguration detected at Load time, such
	// as an embedding dimension that does not match the stored column width.
	ErrConfig = errors.New("corerr: invalid configuration")

	// ErrStoreUnavailable marks a storage-layer failure (pool exhaustion,
	// connection refused, query error) that the caller cannot retry locally.
	ErrStoreUnavailable = errors.New("corerr: store unavailable")

	// ErrEmbeddingFailure marks a failure from the embedding provider.
	ErrEmbeddingFailure = errors.New("corerr: embedding failure")

	// ErrLLMFailure marks a failure from the generation provider, including
	// refusals and malformed completions.
	ErrLLMFailure = errors.New("corerr: llm failure")

	// ErrRerankFailure marks a cross-encoder scoring failure. The reranker
	// falls back to the hybrid score s_hyb for the failed pair rather than
	// propagating this.
	ErrRerankFailure = errors.New("corerr: rerank failure")

	// ErrLoggerFailure marks a failure to persist an agent log entry.
	// Logging failures are warned and swallowed, never fatal to a query.
	ErrLoggerFailure = errors.New("corerr: logger failure")

	// ErrDeadlineExceeded marks a per-query deadline expiring mid-graph.
	// The executor finalizes to abstain rather than propagating this to
	// the caller as a bare timeout.
	ErrDeadlineExceeded = errors.New("corerr: deadline exceeded")
)
