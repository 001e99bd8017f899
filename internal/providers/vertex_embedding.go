package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/google"
)

// VertexEmbedding implements EmbeddingService over the Vertex AI text
// embedding REST API. text-embedding-004 produces asymmetric vector
// spaces for RETRIEVAL_DOCUMENT vs RETRIEVAL_QUERY task types; queries
// always use RETRIEVAL_QUERY here since this adapter only serves the
// retriever node, never ingestion.
type VertexEmbedding struct {
	project  string
	location string
	model    string
	client   *http.Client
}

// NewVertexEmbedding builds a VertexEmbedding using default credentials.
func NewVertexEmbedding(ctx context.Context, project, location, model string) (*VertexEmbedding, error) {
	client, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("providers.NewVertexEmbedding: %w", err)
	}
	return &VertexEmbedding{project: project, location: location, model: model, client: client}, nil
}

type embeddingRequest struct {
	Instances []embeddingInstance `json:"instances"`
}

type embeddingInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type"`
}

type embeddingResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// EmbedText embeds a single query string. Retries on rate limiting.
func (v *VertexEmbedding) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, "VertexEmbedding.EmbedText", func() ([]float32, error) {
		vecs, err := v.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("providers.VertexEmbedding.EmbedText: empty response")
		}
		return vecs[0], nil
	})
}

// EmbedImage is not supported by the text embedding endpoint; multimodal
// embedding is an ingestion-time concern outside the core (spec.md §1).
func (v *VertexEmbedding) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	return nil, fmt.Errorf("providers.VertexEmbedding.EmbedImage: image embedding is not served by this adapter")
}

func (v *VertexEmbedding) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	instances := make([]embeddingInstance, len(texts))
	for i, t := range texts {
		instances[i] = embeddingInstance{Content: t, TaskType: taskType}
	}

	reqBody, err := json.Marshal(embeddingRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("providers.VertexEmbedding: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.endpointURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("providers.VertexEmbedding: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("providers.VertexEmbedding: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("providers.VertexEmbedding: status %d: %s", resp.StatusCode, body)
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("providers.VertexEmbedding: decode: %w", err)
	}

	results := make([][]float32, len(embResp.Predictions))
	for i, p := range embResp.Predictions {
		results[i] = p.Embeddings.Values
	}
	return results, nil
}

func (v *VertexEmbedding) endpointURL() string {
	if v.location == "global" {
		return fmt.Sprintf(
			"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:predict",
			v.project, v.model,
		)
	}
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		v.location, v.project, v.location, v.model,
	)
}
