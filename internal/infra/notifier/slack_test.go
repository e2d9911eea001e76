package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"manifeed/internal/domain/entity"
)

func TestSlackNotifier_buildBlockKitPayload(t *testing.T) {
	t.Run("TC-1: should build valid payload with section and context blocks", func(t *testing.T) {
		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test", Timeout: 10 * time.Second})

		updatedAt := time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC)
		job := &entity.Job{
			JobID:       "11111111-1111-1111-1111-111111111111",
			Ingest:      true,
			RequestedBy: "scheduler",
			FeedCount:   5,
			Status:      entity.JobStatusCompleted,
			UpdatedAt:   updatedAt,
		}

		payload := notifier.buildBlockKitPayload(job)

		if !strings.Contains(payload.Text, job.JobID) {
			t.Errorf("expected fallback text to contain job id, got %q", payload.Text)
		}
		if len(payload.Blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(payload.Blocks))
		}

		section := payload.Blocks[0]
		if section.Type != "section" {
			t.Errorf("expected first block type=section, got %q", section.Type)
		}
		if !strings.Contains(section.Text.Text, string(job.Status)) {
			t.Errorf("expected section text to mention status, got %q", section.Text.Text)
		}
		if !strings.Contains(section.Text.Text, job.JobID) {
			t.Errorf("expected section text to mention job id, got %q", section.Text.Text)
		}

		contextBlock := payload.Blocks[1]
		if contextBlock.Type != "context" {
			t.Errorf("expected second block type=context, got %q", contextBlock.Type)
		}
		expectedTimestamp := updatedAt.Format(time.RFC3339)
		if !strings.Contains(contextBlock.Elements[0].Text, expectedTimestamp) {
			t.Errorf("expected context text to contain timestamp %q, got %q", expectedTimestamp, contextBlock.Elements[0].Text)
		}
	})

	t.Run("TC-2: should truncate long fallback text", func(t *testing.T) {
		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test", Timeout: 10 * time.Second})
		job := &entity.Job{JobID: strings.Repeat("a", 200), Status: entity.JobStatusFailed, UpdatedAt: time.Now()}

		payload := notifier.buildBlockKitPayload(job)
		if len(payload.Text) > maxFallbackLength {
			t.Errorf("expected fallback text length <= %d, got %d", maxFallbackLength, len(payload.Text))
		}
		if !strings.HasSuffix(payload.Text, slackTruncationSuffix) {
			t.Errorf("expected fallback text to end with %q", slackTruncationSuffix)
		}
	})

	t.Run("TC-3: should truncate long section text", func(t *testing.T) {
		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test", Timeout: 10 * time.Second})
		job := &entity.Job{JobID: "job-3", RequestedBy: strings.Repeat("b", 5000), Status: entity.JobStatusCompleted, UpdatedAt: time.Now()}

		payload := notifier.buildBlockKitPayload(job)
		sectionText := payload.Blocks[0].Text.Text
		if len(sectionText) > maxSectionTextLength {
			t.Errorf("expected section text length <= %d, got %d", maxSectionTextLength, len(sectionText))
		}
	})
}

func testSlackJob() *entity.Job {
	return &entity.Job{
		JobID:       "test-job-1",
		Ingest:      false,
		RequestedBy: "tester",
		FeedCount:   1,
		Status:      entity.JobStatusCompleted,
		UpdatedAt:   time.Now(),
	}
}

func TestSlackNotifier_sendWebhookRequest(t *testing.T) {
	t.Run("TC-1: should succeed with 200 OK response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type=application/json, got %q", r.Header.Get("Content-Type"))
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		err := notifier.sendWebhookRequest(context.Background(), testSlackJob())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("TC-2: should handle 429 rate limit via Retry-After header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		err := notifier.sendWebhookRequest(context.Background(), testSlackJob())
		if err == nil {
			t.Fatal("expected rate limit error, got nil")
		}
		rateLimitErr, ok := err.(*RateLimitError)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T", err)
		}
		if rateLimitErr.RetryAfter != 2*time.Second {
			t.Errorf("expected retry_after=2s, got %v", rateLimitErr.RetryAfter)
		}
	})

	t.Run("TC-3: should return ClientError for 4xx (non-retryable)", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok": false, "error": "invalid_payload"}`))
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		err := notifier.sendWebhookRequest(context.Background(), testSlackJob())
		if err == nil {
			t.Fatal("expected client error, got nil")
		}
		clientErr, ok := err.(*ClientError)
		if !ok {
			t.Fatalf("expected ClientError, got %T", err)
		}
		if clientErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status code=%d, got %d", http.StatusBadRequest, clientErr.StatusCode)
		}
		if isRetryableError(err) {
			t.Error("expected client error to be non-retryable")
		}
	})

	t.Run("TC-4: should return ServerError for 5xx (retryable)", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		err := notifier.sendWebhookRequest(context.Background(), testSlackJob())
		if err == nil {
			t.Fatal("expected server error, got nil")
		}
		serverErr, ok := err.(*ServerError)
		if !ok {
			t.Fatalf("expected ServerError, got %T", err)
		}
		if serverErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status code=%d, got %d", http.StatusInternalServerError, serverErr.StatusCode)
		}
		if !isRetryableError(err) {
			t.Error("expected server error to be retryable")
		}
	})
}

func TestSlackNotifier_sendWebhookRequestWithRetry(t *testing.T) {
	t.Run("TC-1: should succeed on first attempt (no retry)", func(t *testing.T) {
		requestCount := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-1")

		err := notifier.sendWebhookRequestWithRetry(ctx, testSlackJob())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if atomic.LoadInt32(&requestCount) != 1 {
			t.Errorf("expected 1 request, got %d", requestCount)
		}
	})

	t.Run("TC-2: should fail after max retries (2 attempts)", func(t *testing.T) {
		requestCount := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-2")

		err := notifier.sendWebhookRequestWithRetry(ctx, testSlackJob())
		if err == nil {
			t.Fatal("expected error after max retries, got nil")
		}
		if atomic.LoadInt32(&requestCount) != 2 {
			t.Errorf("expected 2 requests (max attempts), got %d", requestCount)
		}
		if !strings.Contains(err.Error(), "failed after 2 attempts") {
			t.Errorf("expected error message to mention 2 attempts, got %v", err)
		}
	})

	t.Run("TC-3: should not retry 4xx client errors", func(t *testing.T) {
		requestCount := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-3")

		err := notifier.sendWebhookRequestWithRetry(ctx, testSlackJob())
		if err == nil {
			t.Fatal("expected error for 401, got nil")
		}
		if atomic.LoadInt32(&requestCount) != 1 {
			t.Errorf("expected 1 request (no retry for 4xx), got %d", requestCount)
		}
	})
}

func TestSlackNotifier_NotifyJobComplete(t *testing.T) {
	t.Run("TC-1: should send successful notification end-to-end", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		job := &entity.Job{
			JobID:       "123",
			Ingest:      true,
			RequestedBy: "api",
			FeedCount:   3,
			Status:      entity.JobStatusCompleted,
			UpdatedAt:   time.Now(),
		}

		err := notifier.NotifyJobComplete(context.Background(), job)
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("TC-2: should apply rate limiting before sending", func(t *testing.T) {
		requestCount := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		err := notifier.NotifyJobComplete(context.Background(), testSlackJob())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if atomic.LoadInt32(&requestCount) != 1 {
			t.Errorf("expected 1 webhook request, got %d", requestCount)
		}
	})

	t.Run("TC-3: should return error but not panic on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: 10 * time.Second})

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("expected no panic, but got panic: %v", r)
				}
			}()
			err = notifier.NotifyJobComplete(context.Background(), testSlackJob())
		}()

		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestNewSlackNotifier(t *testing.T) {
	t.Run("should create Slack notifier with proper configuration", func(t *testing.T) {
		config := SlackConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
			Timeout:    15 * time.Second,
		}

		notifier := NewSlackNotifier(config)

		if notifier == nil {
			t.Fatal("expected non-nil notifier")
		}
		if notifier.httpClient.Timeout != config.Timeout {
			t.Errorf("expected timeout=%v, got %v", config.Timeout, notifier.httpClient.Timeout)
		}
		if notifier.rateLimiter == nil {
			t.Error("expected rate limiter to be initialized")
		}
		if notifier.config.WebhookURL != config.WebhookURL {
			t.Errorf("expected webhook URL=%q, got %q", config.WebhookURL, notifier.config.WebhookURL)
		}
	})
}

func TestSlackWebhookPayload_JSON(t *testing.T) {
	t.Run("should marshal with mrkdwn text type", func(t *testing.T) {
		notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test", Timeout: 10 * time.Second})
		payload := notifier.buildBlockKitPayload(testSlackJob())

		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		if !strings.Contains(string(data), `"mrkdwn"`) {
			t.Errorf("expected payload to use mrkdwn text type, got %s", data)
		}
	})
}
