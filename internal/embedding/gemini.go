package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/vaultlens/internal/apperr"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "embedding-001"
)

// Gemini calls the Generative Language embedContent endpoint.
type Gemini struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewGemini creates a Gemini provider. Empty baseURL and model select defaults.
func NewGemini(apiKey, model, baseURL string, client *http.Client) *Gemini {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   strings.TrimPrefix(model, "models/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []geminiPart `json:"parts"`
	} `json:"content"`
	TaskType string `json:"taskType,omitempty"`
}

type geminiResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func geminiTask(t TaskType) string {
	switch t {
	case TaskQuery:
		return "RETRIEVAL_QUERY"
	case TaskDocument:
		return "RETRIEVAL_DOCUMENT"
	}
	return ""
}

// Embed implements Provider.
func (g *Gemini) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	var req geminiRequest
	req.Model = "models/" + g.model
	req.Content.Parts = []geminiPart{{Text: text}}
	req.TaskType = geminiTask(task)

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:embedContent", g.baseURL, url.PathEscape(g.model))
	header := http.Header{}
	header.Set("x-goog-api-key", g.apiKey)

	var resp geminiResponse
	if err := postJSON(ctx, g.client, endpoint, header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding: gemini returned empty vector: %w", apperr.ErrNetwork)
	}
	return resp.Embedding.Values, nil
}
