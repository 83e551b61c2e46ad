package assistant

import (
	"context"
	"log/slog"
	"time"
)

// RetryClient decorates an LLMClient with a per-attempt timeout and bounded
// retries with exponential backoff. When every attempt fails the returned
// error wraps ErrUpstream so callers can degrade to a canned reply.
type RetryClient struct {
	inner      LLMClient
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryClient wraps inner. maxRetries counts retries after the first
// attempt; zero means a single attempt.
func NewRetryClient(inner LLMClient, timeout time.Duration, maxRetries int, logger *slog.Logger) *RetryClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		inner:      inner,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		logger:     logger,
	}
}

func (c *RetryClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return LLMResponse{}, ctx.Err()
			}
			c.logger.Warn("retrying llm completion", "attempt", attempt+1, "error", lastErr)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.inner.Complete(attemptCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return LLMResponse{}, ctx.Err()
		}
	}

	c.logger.Error("llm completion exhausted retries", "retries", c.maxRetries, "error", lastErr)
	return LLMResponse{}, upstreamError{cause: lastErr}
}

// upstreamError wraps the last provider error while matching ErrUpstream
// through errors.Is.
type upstreamError struct {
	cause error
}

func (e upstreamError) Error() string {
	if e.cause == nil {
		return ErrUpstream.Error()
	}
	return ErrUpstream.Error() + ": " + e.cause.Error()
}

func (e upstreamError) Unwrap() error { return e.cause }

func (e upstreamError) Is(target error) bool { return target == ErrUpstream }
