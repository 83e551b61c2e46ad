package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicasanmiguel/riley/internal/slots"
)

type mockClient struct {
	calls     int
	failUntil int
	text      string
	err       error
}

func (m *mockClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	m.calls++
	if m.err != nil && m.calls <= m.failUntil {
		return LLMResponse{}, m.err
	}
	return LLMResponse{Text: m.text, StopReason: "stop"}, nil
}

func testClinic() ClinicContext {
	return ClinicContext{
		Name:         "Clinica San Miguel",
		PhoneDisplay: "(415) 555-1000",
		Hours:        "Mon-Sat 9am-6pm",
		Services:     []string{"Immigration exam", "Urgent care"},
	}
}

func TestRetryClientExhaustsAndWrapsUpstream(t *testing.T) {
	inner := &mockClient{failUntil: 10, err: errors.New("boom")}
	client := NewRetryClient(inner, time.Second, 0, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, inner.calls)
}

func TestRetryClientRecoversOnLaterAttempt(t *testing.T) {
	inner := &mockClient{failUntil: 1, err: errors.New("transient"), text: "hello"}
	client := NewRetryClient(inner, time.Second, 2, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryClientStopsOnCanceledContext(t *testing.T) {
	inner := &mockClient{failUntil: 10, err: errors.New("down")}
	client := NewRetryClient(inner, time.Second, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, LLMRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFallbackClientUsesSecondaryOnPrimaryFailure(t *testing.T) {
	primary := &mockClient{failUntil: 10, err: errors.New("primary down")}
	secondary := &mockClient{text: "from fallback"}
	client := NewFallbackClient(primary, secondary, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackClientPrefersPrimary(t *testing.T) {
	primary := &mockClient{text: "from primary"}
	secondary := &mockClient{text: "from fallback"}
	client := NewFallbackClient(primary, secondary, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", resp.Text)
	assert.Equal(t, 0, secondary.calls)
}

func TestBuildSystemPromptIncludesPersonaAndClinic(t *testing.T) {
	system := BuildSystemPrompt(testClinic(), slots.State{}, nil)
	require.NotEmpty(t, system)

	joined := strings.Join(system, "\n")
	assert.Contains(t, joined, "You are Riley")
	assert.Contains(t, joined, "Clinica San Miguel")
	assert.Contains(t, joined, "(415) 555-1000")
	assert.Contains(t, joined, "Immigration exam")
	assert.NotContains(t, joined, "Appointment data collected")
}

func TestBuildSystemPromptCarriesSlotState(t *testing.T) {
	st := slots.State{Name: "John Smith", Phone: "5551234567", Date: "2026-09-01"}
	system := BuildSystemPrompt(testClinic(), st, nil)

	joined := strings.Join(system, "\n")
	assert.Contains(t, joined, "Appointment data collected")
	assert.Contains(t, joined, "John Smith")
	assert.Contains(t, joined, "5551234567")
	assert.Contains(t, joined, "2026-09-01")
}

func TestBuildSystemPromptCarriesPatientContext(t *testing.T) {
	patient := &PatientContext{
		Name:              "Maria Garcia",
		PreferredLanguage: "es",
		Upcoming:          []string{"2026-09-05 10:00 AM (CHAT-12345)"},
	}
	system := BuildSystemPrompt(testClinic(), slots.State{}, patient)

	joined := strings.Join(system, "\n")
	assert.Contains(t, joined, "Maria Garcia")
	assert.Contains(t, joined, "es")
	assert.Contains(t, joined, "CHAT-12345")
}

func TestResponderReturnsModelReply(t *testing.T) {
	client := &mockClient{text: "Sure, what day works for you?"}
	r := NewResponder(client, testClinic(), nil)

	reply, degraded := r.Reply(context.Background(), Turn{Message: "I'd like to book"})
	assert.False(t, degraded)
	assert.Equal(t, "Sure, what day works for you?", reply)
}

func TestResponderDegradesToApology(t *testing.T) {
	client := &mockClient{failUntil: 10, err: upstreamError{cause: errors.New("down")}}
	r := NewResponder(client, testClinic(), nil)

	reply, degraded := r.Reply(context.Background(), Turn{Message: "hello"})
	assert.True(t, degraded)
	assert.Contains(t, reply, "I apologize")
	assert.Contains(t, reply, "(415) 555-1000")
}

func TestResponderApologizesInSpanish(t *testing.T) {
	client := &mockClient{failUntil: 10, err: errors.New("down")}
	r := NewResponder(client, testClinic(), nil)

	turn := Turn{Message: "hola", Patient: &PatientContext{Name: "Maria", PreferredLanguage: "es"}}
	reply, degraded := r.Reply(context.Background(), turn)
	assert.True(t, degraded)
	assert.Contains(t, reply, "Disculpe")
}

func TestResponderSendsHistoryAndMessage(t *testing.T) {
	client := &capturingClient{text: "ok"}
	r := NewResponder(client, testClinic(), nil)

	turn := Turn{
		History: []ChatMessage{
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello, how can I help?"},
		},
		Message: "book me in",
	}
	_, _ = r.Reply(context.Background(), turn)

	require.Len(t, client.req.Messages, 3)
	assert.Equal(t, ChatRoleUser, client.req.Messages[2].Role)
	assert.Equal(t, "book me in", client.req.Messages[2].Content)
}

type capturingClient struct {
	req  LLMRequest
	text string
}

func (c *capturingClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	c.req = req
	return LLMResponse{Text: c.text}, nil
}
