// Package api is the HTTP client for the remote remediation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

// Client talks to the remediation service's REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu            sync.RWMutex
	successCount  int
	failureCount  int
	lastSuccessAt time.Time
	lastFailureAt time.Time
}

// Stats holds request outcome counters for health reporting.
type Stats struct {
	SuccessCount  int
	FailureCount  int
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// NewClient creates a new remediation API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// ReportErrors posts a batch report to POST /errors/report/{sessionId}.
func (c *Client) ReportErrors(ctx context.Context, sessionID string, report *domain.ErrorReport) error {
	url := fmt.Sprintf("%s/errors/report/%s", c.baseURL, sessionID)
	_, err := c.post(ctx, url, report)
	return err
}

// FixAll requests an immediate fix of all outstanding errors via
// POST /errors/fix-all/{sessionId}. This is the manual path and is not
// governed by the automatic retry budget.
func (c *Client) FixAll(ctx context.Context, sessionID string, report *domain.ErrorReport) (*domain.FixResponse, error) {
	url := fmt.Sprintf("%s/errors/fix-all/%s", c.baseURL, sessionID)
	body, err := c.post(ctx, url, report)
	if err != nil {
		return nil, err
	}

	var resp domain.FixResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

// GetStats returns request outcome counters.
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		SuccessCount:  c.successCount,
		FailureCount:  c.failureCount,
		LastSuccessAt: c.lastSuccessAt,
		LastFailureAt: c.lastFailureAt,
	}
}

// Close cleans up idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("report call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.recordFailure()
		return nil, fmt.Errorf("rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	c.recordSuccess()
	return body, nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successCount++
	c.lastSuccessAt = time.Now()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.lastFailureAt = time.Now()
}
