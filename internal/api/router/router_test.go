package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicasanmiguel/riley/internal/conversation"
	"github.com/clinicasanmiguel/riley/internal/intent"
	"github.com/clinicasanmiguel/riley/internal/webchat"
)

type stubEngine struct{}

func (stubEngine) ProcessTurn(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error) {
	return &conversation.Reply{
		SessionID:  "sess-1",
		Message:    "Hello from Riley",
		Intent:     intent.None,
		Confidence: 0.3,
	}, nil
}

func TestHealthRoute(t *testing.T) {
	h := New(&Config{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestChatRouteWiredWithRateLimit(t *testing.T) {
	h := New(&Config{
		Chat:              webchat.NewHandler(stubEngine{}, nil),
		ChatRatePerSecond: 0.001,
		ChatBurst:         1,
	})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("10.0.0.1:1234")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Hello from Riley")

	second := send("10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// A different client keeps its own bucket.
	other := send("10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestUnconfiguredRoutesAbsent(t *testing.T) {
	h := New(&Config{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/sms", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
