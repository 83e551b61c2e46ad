package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicasanmiguel/riley/internal/conversation"
	"github.com/clinicasanmiguel/riley/internal/intent"
	"github.com/clinicasanmiguel/riley/internal/patients"
)

type fakeEngine struct {
	turns []conversation.Turn
	reply *conversation.Reply
	err   error
}

func (f *fakeEngine) ProcessTurn(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error) {
	f.turns = append(f.turns, turn)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	return rec
}

func TestChatReturnsEngineReply(t *testing.T) {
	engine := &fakeEngine{reply: &conversation.Reply{
		SessionID:  "sess-1",
		Message:    "You're booked!",
		Intent:     intent.Book,
		Confidence: 0.9,
	}}
	h := NewHandler(engine, nil)

	rec := postChat(t, h, `{"message":"book me tomorrow at 2pm","sessionId":"sess-1","phone":"555-123-4567"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "You're booked!", resp.Message)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "appointment_booking", resp.Intent)
	assert.InDelta(t, 0.9, resp.Confidence, 0.001)

	require.Len(t, engine.turns, 1)
	assert.Equal(t, patients.ChannelWebChat, engine.turns[0].Channel)
	assert.Equal(t, "555-123-4567", engine.turns[0].From)
}

func TestChatWithoutSessionIDPassesEmptyToEngine(t *testing.T) {
	// The engine owns session id generation; the adapter just forwards.
	engine := &fakeEngine{reply: &conversation.Reply{SessionID: "generated", Intent: intent.None}}
	h := NewHandler(engine, nil)

	rec := postChat(t, h, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, engine.turns[0].SessionID)
	assert.Contains(t, rec.Body.String(), `"sessionId":"generated"`)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	engine := &fakeEngine{reply: &conversation.Reply{}}
	h := NewHandler(engine, nil)

	rec := postChat(t, h, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, engine.turns)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil)

	rec := postChat(t, h, "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("redis down")}
	h := NewHandler(engine, nil)

	rec := postChat(t, h, `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}
