package embedding

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponseItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data []embedResponseItem `json:"data"`
}

// httpProvider calls an OpenAI-compatible embeddings endpoint with
// go-resty, validating every returned vector against the configured
// dimension count.
type httpProvider struct {
	client     *resty.Client
	model      string
	dimensions int
}

// NewHTTPProvider builds a Provider against baseURL + "/embeddings",
// authenticating with apiKey via a bearer token when non-empty.
func NewHTTPProvider(baseURL, apiKey, model string, dimensions int) Provider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &httpProvider{client: client, model: model, dimensions: dimensions}
}

func (p *httpProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result embedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: p.model, Input: texts}).
		SetResult(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embedding: provider returned %s: %s", resp.Status(), resp.String())
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(result.Data))
	}

	out := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding: out-of-range index %d in provider response", item.Index)
		}
		if p.dimensions > 0 && len(item.Embedding) != p.dimensions {
			return nil, &DimensionError{Expected: p.dimensions, Got: len(item.Embedding)}
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}
