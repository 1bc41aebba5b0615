package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ModelChecker implements health checking for the ranking model service.
type ModelChecker struct {
	url    string
	client *http.Client
}

// NewModelChecker creates a new model service health checker.
// The url should be the base URL of the model service (e.g., "http://model:9000").
func NewModelChecker(url string) *ModelChecker {
	return &ModelChecker{
		url: url,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck performs a health check by requesting the model service's
// health endpoint.
func (m *ModelChecker) HealthCheck(ctx context.Context) error {
	if m.url == "" {
		return fmt.Errorf("model service url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach model service: %w", err)
	}
	defer resp.Body.Close()

	// Consider the service healthy only for successful (2xx) responses.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model service unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
