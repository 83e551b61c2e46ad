// Package sms adapts the Telnyx messaging API: inbound webhooks in, outbound
// texts out.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicasanmiguel/riley/pkg/logging"
)

const defaultBaseURL = "https://api.telnyx.com/v2"

// Sender sends one outbound SMS.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// ClientConfig controls how the Telnyx client behaves.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	FromNumber string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client wraps the Telnyx /messages endpoint with bounded timeout and
// retries.
type Client struct {
	apiKey     string
	baseURL    string
	fromNumber string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms: telnyx API key is required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("sms: from number is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		fromNumber: cfg.FromNumber,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}, nil
}

// Send posts one text message. Server errors and transport failures are
// retried with linear backoff; 4xx responses are not.
func (c *Client) Send(ctx context.Context, to, text string) error {
	body, err := json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		Text string `json:"text"`
	}{From: c.fromNumber, To: to, Text: text})
	if err != nil {
		return fmt.Errorf("sms: marshal send body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			c.logger.Warn("retrying telnyx send", "attempt", attempt+1, "error", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("sms: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("sms: telnyx returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			continue
		default:
			return fmt.Errorf("sms: telnyx returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
	}
	return fmt.Errorf("sms: send failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
