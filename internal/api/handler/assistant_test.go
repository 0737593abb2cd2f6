package handler_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/assistant"
)

type stubModel struct {
	reply string
}

func (m stubModel) Generate(context.Context, string, string) (string, error) {
	return m.reply, nil
}

type stubChats struct {
	mu   sync.Mutex
	msgs []assistant.Message
}

func (c *stubChats) Append(_ context.Context, m *assistant.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.ID = uuid.New()
	c.msgs = append(c.msgs, *m)
	return nil
}

func (c *stubChats) Recent(_ context.Context, userID uuid.UUID, limit int) ([]assistant.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []assistant.Message{}
	for _, m := range c.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (c *stubChats) Clear(_ context.Context, userID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.msgs[:0]
	var n int64
	for _, m := range c.msgs {
		if m.UserID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	c.msgs = kept
	return n, nil
}

type unusedRunner struct{}

func (unusedRunner) Run(context.Context, string) (*assistant.Result, error) {
	panic("runner must not be called")
}

func TestAssistantAsk_Unavailable(t *testing.T) {
	t.Parallel()

	h := handler.NewAssistantHandler(assistant.NewService(nil, &stubChats{}, unusedRunner{}, nil))

	body := mustJSON(t, map[string]string{"question": "Who is on leave?"})
	req, w := makeChiRequest(http.MethodPost, "/assistant/ask", body, "/assistant/ask", nil)
	h.Ask(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ASSISTANT_UNAVAILABLE", errorCode(t, w))
}

func TestAssistantAsk_BlankQuestion(t *testing.T) {
	t.Parallel()

	h := handler.NewAssistantHandler(assistant.NewService(stubModel{}, &stubChats{}, unusedRunner{}, nil))

	body := mustJSON(t, map[string]string{"question": "   "})
	req, w := makeChiRequest(http.MethodPost, "/assistant/ask", body, "/assistant/ask", nil)
	h.Ask(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestAssistantAsk_TextAnswerIsRecorded(t *testing.T) {
	t.Parallel()

	chats := &stubChats{}
	model := stubModel{reply: assistant.NoQueryPrefix + " I can only answer questions about your team's data."}
	h := handler.NewAssistantHandler(assistant.NewService(model, chats, unusedRunner{}, nil))
	caller := memberIdentity()

	body := mustJSON(t, map[string]string{"question": "What is the weather?"})
	req, w := makeChiRequest(http.MethodPost, "/assistant/ask", body, "/assistant/ask", nil)
	h.Ask(w, asUser(req, caller))

	require.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "I can only answer questions about your team's data.", data["text"])
	assert.Nil(t, data["sql"])
	assert.Empty(t, data["rows"])

	req, w = makeChiRequest(http.MethodGet, "/assistant/history", nil, "/assistant/history", nil)
	h.History(w, asUser(req, caller))

	require.Equal(t, http.StatusOK, w.Code)
	history := parseEnvelope(t, w)["data"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].(map[string]interface{})["role"])
	assert.Equal(t, "What is the weather?", history[0].(map[string]interface{})["content"])
	assert.Equal(t, "assistant", history[1].(map[string]interface{})["role"])
}

func TestAssistantHistory_InvalidLimit(t *testing.T) {
	t.Parallel()

	h := handler.NewAssistantHandler(assistant.NewService(nil, &stubChats{}, unusedRunner{}, nil))

	req, w := makeChiRequest(http.MethodGet, "/assistant/history?limit=0", nil, "/assistant/history", nil)
	h.History(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestAssistantClearHistory_OnlyCaller(t *testing.T) {
	t.Parallel()

	caller := memberIdentity()
	other := memberIdentity()
	chats := &stubChats{msgs: []assistant.Message{
		{UserID: caller.UserID, Role: assistant.RoleUser, Content: "a"},
		{UserID: caller.UserID, Role: assistant.RoleAssistant, Content: "b"},
		{UserID: other.UserID, Role: assistant.RoleUser, Content: "c"},
	}}
	h := handler.NewAssistantHandler(assistant.NewService(nil, chats, unusedRunner{}, nil))

	req, w := makeChiRequest(http.MethodDelete, "/assistant/history", nil, "/assistant/history", nil)
	h.ClearHistory(w, asUser(req, caller))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), parseEnvelope(t, w)["data"].(map[string]interface{})["deleted"])
	remaining, err := chats.Recent(context.Background(), other.UserID, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
