package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docseek/apps/backend/internal/document"
)

func newChatHandler(t *testing.T) (*Handler, *MockGenerator) {
	t.Helper()
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]document.Document{}, nil).Maybe()
	generator := new(MockGenerator)
	return NewHandler(NewService(searcher, generator, 4)), generator
}

func TestHandlerAsk(t *testing.T) {
	h, generator := newChatHandler(t)
	generator.On("Generate", mock.Anything, mock.Anything).Return("hi there", nil)

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data Answer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi there", resp.Data.Answer)
	assert.NotEmpty(t, resp.Data.SessionID)
	assert.NotNil(t, resp.Data.Sources)
}

func TestHandlerAsk_Validation(t *testing.T) {
	h, _ := newChatHandler(t)

	t.Run("missing message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.Ask(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{nope`))
		rec := httptest.NewRecorder()
		h.Ask(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlerAsk_GeneratorFailure(t *testing.T) {
	h, generator := newChatHandler(t)
	generator.On("Generate", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestHandlerClearSession(t *testing.T) {
	h, _ := newChatHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.ClearSession(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
