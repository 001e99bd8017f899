package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every option enumerated in spec.md §6.4, plus the ambient
// options (DB connection, ports, log directory) a deployable service needs.
// It is immutable after Load() returns; request handling never rebinds it
// (spec.md §9 Design Notes) — tests pass an override *Config instead.
type Config struct {
	Port        int
	Environment string

	DatabaseURL      string
	DatabaseMaxConns int

	// EmbeddingDim (D) must equal the stored vector(D) column width and
	// len(embed_text(any string)); mismatch is a fatal config error.
	EmbeddingDim int

	GCPProject        string
	VertexAILocation  string
	VertexAIModel     string
	EmbeddingLocation string
	EmbeddingModel    string

	FrontendURL string

	// Retrieval widths (spec.md §6.4).
	KLex       int
	KVec       int
	KRetriever int
	KCritic    int
	MMRLambda  float64
	MaxIters   int

	// Confidence weights w0..w10 (spec.md §6.4 defaults).
	ConfidenceWeights [11]float64
	AbstainThreshold  float64
	ClarifyThreshold  float64

	// Synthesizer legacy-fallback percent thresholds (spec.md §4.6, §4.7).
	DefaultThresholdPercent           float64
	ExplicitSelectionThresholdPercent float64

	CompressionBudgetChars int
	LLMTemperature         float64

	LogDir       string
	EntryPoint   string
	PipelineType string

	InternalAuthSecret string
}

// Load reads configuration from environment variables.
// Required variables (DATABASE_URL, GOOGLE_CLOUD_PROJECT) cause an error if missing.
// Optional variables use sensible defaults.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if gcpProject == "" {
		return nil, fmt.Errorf("config.Load: GOOGLE_CLOUD_PROJECT is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		Environment: envStr("ENVIRONMENT", "development"),

		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		EmbeddingDim: envInt("EMBEDDING_DIMENSIONS", 768),

		GCPProject:        gcpProject,
		VertexAILocation:  envStr("VERTEX_AI_LOCATION", "global"),
		VertexAIModel:     envStr("VERTEX_AI_MODEL", "gemini-3-pro-preview"),
		EmbeddingLocation: envStr("VERTEX_AI_EMBEDDING_LOCATION", envStr("GCP_REGION", "us-east4")),
		EmbeddingModel:    envStr("VERTEX_AI_EMBEDDING_MODEL", "text-embedding-004"),

		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),

		KLex:       envInt("K_LEX", 40),
		KVec:       envInt("K_VEC", 40),
		KRetriever: envInt("K_RETRIEVER", 40),
		KCritic:    envInt("K_CRITIC", 6),
		MMRLambda:  envFloat("MMR_LAMBDA", 0.7),
		MaxIters:   envInt("MAX_ITERS", 3),

		ConfidenceWeights: [11]float64{
			envFloat("CONF_W0", -0.5),
			envFloat("CONF_W1", 2.4),
			envFloat("CONF_W2", 1.1),
			envFloat("CONF_W3", 1.6),
			envFloat("CONF_W4", -0.4),
			envFloat("CONF_W5", 0.8),
			envFloat("CONF_W6", 1.3),
			envFloat("CONF_W7", 1.1),
			envFloat("CONF_W8", 0.6),
			envFloat("CONF_W9", 0.45),
			envFloat("CONF_W10", 1.25),
		},
		AbstainThreshold: envFloat("ABSTAIN_THRESHOLD", 0.20),
		ClarifyThreshold: envFloat("CLARIFY_THRESHOLD", 0.60),

		DefaultThresholdPercent:           envFloat("DEFAULT_THRESHOLD", 40.0),
		ExplicitSelectionThresholdPercent: envFloat("EXPLICIT_SELECTION_THRESHOLD", 30.0),

		CompressionBudgetChars: envInt("COMPRESSION_BUDGET_CHARS", 4000),
		LLMTemperature:         envFloat("LLM_TEMPERATURE", 0.18),

		LogDir:       envStr("LOG_DIR", "./logs"),
		EntryPoint:   envStr("ENTRY_POINT", "rest"),
		PipelineType: envStr("PIPELINE_TYPE", "direct"),

		InternalAuthSecret: envStr("INTERNAL_AUTH_SECRET", ""),
	}

	if cfg.EmbeddingDim != 512 && cfg.EmbeddingDim != 768 {
		return nil, fmt.Errorf("config.Load: EMBEDDING_DIMENSIONS must be 512 or 768, got %d", cfg.EmbeddingDim)
	}

	// Internal auth secret is required in non-development environments
	if cfg.Environment != "development" && cfg.InternalAuthSecret == "" {
		return nil, fmt.Errorf("config.Load: INTERNAL_AUTH_SECRET is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
