package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sketchgen/capprep/internal/prompts"
)

const (
	defaultVLMBaseURL   = "https://api.openai.com/v1"
	defaultVLMTimeout   = 60 * time.Second
	defaultVLMMaxTokens = 120
)

// VLMService generates portrait captions using a Vision Language Model
// behind an OpenAI-compatible Chat Completion API.
type VLMService struct {
	client        *resty.Client
	model         string
	fallbackModel string
	maxTokens     int
	endpoint      string
	switched      bool
}

// VLMConfig holds configuration for VLM service.
type VLMConfig struct {
	Provider      string
	Model         string
	FallbackModel string
	APIKey        string
	BaseURL       string
	MaxTokens     int
	TimeoutSecs   int
}

// NewVLMService creates a new VLM service.
// Parameters:
//   - cfg: VLM configuration including provider, model, and API key.
//
// Returns:
//   - *VLMService: initialized VLM client wrapper.
func NewVLMService(cfg *VLMConfig) *VLMService {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultVLMTimeout
	}

	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	base := cfg.BaseURL
	if base == "" {
		base = defaultVLMBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultVLMMaxTokens
	}

	return &VLMService{
		client:        client,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		maxTokens:     maxTokens,
		endpoint:      base + "/chat/completions",
	}
}

// GetModel returns the active model name (the fallback model after a
// switch).
func (s *VLMService) GetModel() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// CaptionImage generates a caption for a portrait image.
// On the first failure it switches to the fallback model (when one is
// configured) and retries once; the switch is permanent for the life of
// the service. Not safe for concurrent use.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes.
//   - format: image format extension (jpg, png, ...).
//
// Returns:
//   - string: generated caption text.
//   - error: non-nil if the API request fails on the active model.
func (s *VLMService) CaptionImage(ctx context.Context, imageData []byte, format string) (string, error) {
	caption, err := s.captionOnce(ctx, imageData, format)
	if err == nil {
		return caption, nil
	}
	// A canceled context is not a model problem
	if ctx.Err() != nil {
		return "", err
	}
	if s.switched || s.fallbackModel == "" || s.fallbackModel == s.model {
		return "", err
	}

	s.model = s.fallbackModel
	s.switched = true
	return s.captionOnce(ctx, imageData, format)
}

func (s *VLMService) captionOnce(ctx context.Context, imageData []byte, format string) (string, error) {
	var resp, apiErr openAIResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(s.buildRequest(imageData, format)).
		SetResult(&resp).
		SetError(&apiErr).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call VLM API: %w", err)
	}

	if httpResp.IsError() {
		detail := string(httpResp.Body())
		if apiErr.Error != nil {
			detail = apiErr.Error.Message
		}
		return "", fmt.Errorf("VLM API returned error: HTTP %d: %s", httpResp.StatusCode(), detail)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("VLM API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from VLM API: no choices in response (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// buildRequest assembles the chat payload. The style instructions ride
// in the system message; the task prompt and the base64 image ride in
// the user message.
func (s *VLMService) buildRequest(imageData []byte, format string) openAIRequest {
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		getMIMEType(format), base64.StdEncoding.EncodeToString(imageData))

	return openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "system", Content: prompts.VLMSystemPrompt},
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{Type: "text", Text: prompts.VLMUserPrompt},
					openAIImageContent{
						Type:     "image_url",
						ImageURL: openAIImageURL{URL: dataURL, Detail: "auto"},
					},
				},
			},
		},
		MaxTokens: s.maxTokens,
	}
}

func getMIMEType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
