package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const defaultEmbeddingBaseURL = "https://api.jina.ai/v1"

// Task hints understood by the Jina embeddings API. Stored captions use
// the passage task; lookups against the collection use the query task.
const (
	embedTaskPassage = "retrieval.passage"
	embedTaskQuery   = "retrieval.query"
)

// EmbeddingService turns captions into fixed-size vectors through the
// Jina embeddings API.
type EmbeddingService struct {
	client     *resty.Client
	model      string
	dimensions int
	endpoint   string
}

type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	base := cfg.BaseURL
	if base == "" {
		base = defaultEmbeddingBaseURL
	}

	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		endpoint:   base + "/embeddings",
	}
}

// GetModel returns the embedding model name.
func (s *EmbeddingService) GetModel() string {
	return s.model
}

type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates an embedding for a single caption.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch embeds several captions in one request. The API may return
// items out of order, so results are reassembled by index.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := s.post(ctx, embedTaskPassage, texts)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			continue
		}
		embeddings[item.Index] = item.Embedding
	}
	return embeddings, nil
}

// EmbedQuery embeds a search query with the query-side task hint.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := s.post(ctx, embedTaskQuery, []string{query})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (s *EmbeddingService) post(ctx context.Context, task string, input []string) (*jinaResponse, error) {
	req := jinaRequest{
		Model:         s.model,
		Task:          task,
		Dimensions:    s.dimensions,
		Input:         input,
		EmbeddingType: "float",
	}

	var resp, apiErr jinaResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}
	if httpResp.IsError() {
		if apiErr.Detail != "" {
			return nil, fmt.Errorf("embedding API error: status %d: %s", httpResp.StatusCode(), apiErr.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}
	return &resp, nil
}
