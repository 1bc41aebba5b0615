package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceClient talks to the model-serving process over HTTP JSON. It
// implements Model (batched action prediction) and the candidate-tower
// projection used when embedding posts.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient creates a client for the model server at baseURL.
// The timeout bounds every call; callers may tighten it further per request
// via context.
func NewServiceClient(baseURL string, timeout time.Duration) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type rankRequest struct {
	UserContext string   `json:"user_context"`
	Candidates  []string `json:"candidates"`
}

type rankResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Rank submits the whole candidate batch in a single call and returns one
// prediction per candidate, in input order.
func (c *ServiceClient) Rank(ctx context.Context, userContext string, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp rankResponse
	err := c.postJSON(ctx, "/v1/rank", rankRequest{UserContext: userContext, Candidates: texts}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("model returned %d predictions for %d candidates", len(resp.Predictions), len(texts))
	}
	return resp.Predictions, nil
}

type projectRequest struct {
	BaseVector []float32 `json:"base_vector"`
}

type projectResponse struct {
	Vector []float32 `json:"vector"`
}

// Project maps a 384-dim base text encoding into the 128-dim candidate
// space via the model server's candidate tower.
func (c *ServiceClient) Project(ctx context.Context, base []float32) ([]float32, error) {
	var resp projectResponse
	if err := c.postJSON(ctx, "/v1/project", projectRequest{BaseVector: base}, &resp); err != nil {
		return nil, err
	}
	return resp.Vector, nil
}

func (c *ServiceClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("model call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}
