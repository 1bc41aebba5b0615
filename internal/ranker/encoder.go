package ranker

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEncoder computes the 384-dim base text encoding through an
// OpenAI-compatible embeddings endpoint. The serving stack exposes the
// sentence encoder behind this API, so BaseURL normally points at it rather
// than at OpenAI proper.
type OpenAIEncoder struct {
	client *openai.Client
	model  string
}

// DefaultEncoderModel is the sentence encoder served by the embedding stack.
// Its output dimensionality must match BaseDim.
const DefaultEncoderModel = "all-MiniLM-L6-v2"

// NewOpenAIEncoder creates an encoder against the given endpoint.
// baseURL may be empty to use the default API host; model may be empty to
// use DefaultEncoderModel.
func NewOpenAIEncoder(apiKey, baseURL, model string) *OpenAIEncoder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultEncoderModel
	}
	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Encode returns the base embedding for a single text.
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
