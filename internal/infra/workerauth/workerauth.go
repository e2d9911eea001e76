// Package workerauth issues and caches the JWT a Scrape Worker presents to
// the API backend, grounded on worker_auth_service.py: a module-level
// cached token there becomes a mutex-guarded struct field here, matching
// the teacher's dependency-injected-singleton convention rather than an
// ambient package global.
package workerauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// tokenRefreshBuffer mirrors _TOKEN_REFRESH_BUFFER: a cached token is
// refreshed early rather than risking it expiring mid-request.
const tokenRefreshBuffer = 60 * time.Second

// Client caches a worker JWT obtained from the API backend's
// POST /internal/workers/token endpoint.
type Client struct {
	httpClient   *http.Client
	apiURL       string
	workerID     string
	workerSecret string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(httpClient *http.Client, apiURL, workerID, workerSecret string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:   httpClient,
		apiURL:       strings.TrimRight(apiURL, "/"),
		workerID:     workerID,
		workerSecret: workerSecret,
	}
}

// Token returns a cached, still-valid token, or requests a fresh one.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(tokenRefreshBuffer).Before(c.expiresAt) {
		return c.token, nil
	}

	if strings.TrimSpace(c.workerID) == "" || strings.TrimSpace(c.workerSecret) == "" {
		return "", fmt.Errorf("workerauth: worker credentials are not configured")
	}

	token, expiresAt, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = expiresAt.UTC()
	return c.token, nil
}

type tokenRequest struct {
	WorkerID     string `json:"worker_id"`
	WorkerSecret string `json:"worker_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

func (c *Client) requestToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(tokenRequest{WorkerID: c.workerID, WorkerSecret: c.workerSecret})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("workerauth: marshal request: %w", err)
	}

	endpoint := c.apiURL + "/internal/workers/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("workerauth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("workerauth: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("workerauth: token request failed: HTTP %d", resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("workerauth: decode response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("workerauth: token response does not contain a valid access_token")
	}

	expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("workerauth: token response contains an invalid expires_at: %w", err)
	}
	return payload.AccessToken, expiresAt, nil
}
