package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"
)

// VertexLLM implements LLMService over Vertex AI Gemini. Regional
// locations use the Go SDK; the "global" location falls back to the
// REST API, which the deprecated vertexai/genai SDK does not support.
type VertexLLM struct {
	client     *genai.Client
	httpClient *http.Client
	project    string
	location   string
	model      string
	useREST    bool
	temperature float64
}

// NewVertexLLM builds a VertexLLM for the given project/location/model.
func NewVertexLLM(ctx context.Context, project, location, model string, temperature float64) (*VertexLLM, error) {
	if location == "global" {
		httpClient, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("providers.NewVertexLLM: default credentials: %w", err)
		}
		return &VertexLLM{
			httpClient:  httpClient,
			project:     project,
			location:    location,
			model:       model,
			useREST:     true,
			temperature: temperature,
		}, nil
	}

	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("providers.NewVertexLLM: %w", err)
	}
	return &VertexLLM{
		client:      client,
		project:     project,
		location:    location,
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete sends systemPrompt plus the flattened message history to
// Gemini and returns the text response. Retries on rate limiting.
func (v *VertexLLM) Complete(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	userPrompt := flattenMessages(messages)
	return withRetry(ctx, "VertexLLM.Complete", func() (string, error) {
		if v.useREST {
			return v.completeREST(ctx, systemPrompt, userPrompt)
		}
		return v.completeSDK(ctx, systemPrompt, userPrompt)
	})
}

func flattenMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (v *VertexLLM) completeSDK(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := v.client.GenerativeModel(v.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	temp := float32(v.temperature)
	model.Temperature = &temp

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, ""), nil
}

type restGenerateRequest struct {
	Contents          []restContent         `json:"contents"`
	SystemInstruction *restContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *restGenerationConfig `json:"generationConfig,omitempty"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type restGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type restGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (v *VertexLLM) completeREST(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	url := fmt.Sprintf(
		"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:generateContent",
		v.project, v.model,
	)

	reqBody := restGenerateRequest{
		Contents:         []restContent{{Role: "user", Parts: []restPart{{Text: userPrompt}}}},
		GenerationConfig: &restGenerationConfig{Temperature: v.temperature},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &restContent{Role: "user", Parts: []restPart{{Text: systemPrompt}}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("providers.VertexLLM.Complete: status %d: %s", resp.StatusCode, respBody)
	}

	var genResp restGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: decode: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("providers.VertexLLM.Complete: API error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var parts []string
	for _, p := range genResp.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, ""), nil
}

// Close releases the underlying client, if any.
func (v *VertexLLM) Close() {
	if v.client != nil {
		v.client.Close()
	}
}
