package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/vaultlens/internal/apperr"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAI calls an OpenAI-compatible /v1/embeddings endpoint.
// The task type is ignored.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(apiKey, model, baseURL string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)

	var resp openAIResponse
	req := openAIRequest{Input: []string{text}, Model: o.model}
	if err := postJSON(ctx, o.client, o.baseURL+"/v1/embeddings", header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding: openai returned empty vector: %w", apperr.ErrNetwork)
	}
	return resp.Data[0].Embedding, nil
}
