package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeoluwa-dev/chatdocs/internal/chat"
	"github.com/adeoluwa-dev/chatdocs/internal/core/mock"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
	"github.com/adeoluwa-dev/chatdocs/internal/retrieval"
)

func newChatHandler(t *testing.T, db *mock.DB, llm *mock.LLM) *ChatHandler {
	t.Helper()
	retriever := retrieval.NewCoordinator(db, mock.NewEmbedder(), 4)
	return NewChatHandler(retriever, chat.NewGateway(llm))
}

func chatRequestBody(t *testing.T, messages []models.ChatMessage, files []models.DocumentRef) *bytes.Buffer {
	t.Helper()
	payload := map[string]any{
		"messages": messages,
		"data":     map[string]any{"files": files},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func postChat(t *testing.T, h *ChatHandler, body *bytes.Buffer, token string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h.Stream, r)
}

func TestChatHandler_Stream(t *testing.T) {
	question := []models.ChatMessage{{Role: "user", Content: "what does the report say?"}}

	t.Run("streams the grounded answer as plain text", func(t *testing.T) {
		db := mock.NewDB()
		require.NoError(t, db.InsertDocumentChunks(context.Background(), []models.DocumentChunk{{
			ID: "c1", DocumentID: "doc-1", Text: "quarterly revenue grew", Embedding: []float32{1, 0},
		}}))
		llm := mock.NewLLM("Revenue ", "grew ", "this quarter.")
		h := newChatHandler(t, db, llm)

		body := chatRequestBody(t, question, []models.DocumentRef{{ID: "doc-1", Name: "report.pdf"}})
		w := postChat(t, h, body, signToken(t, "user-1"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, "Revenue grew this quarter.", w.Body.String())
		assert.Contains(t, llm.LastSystemPrompt, "Document: report.pdf")
		assert.Contains(t, llm.LastSystemPrompt, "quarterly revenue grew")
	})

	t.Run("no attached documents grounds on the sentinel", func(t *testing.T) {
		llm := mock.NewLLM("General answer.")
		h := newChatHandler(t, mock.NewDB(), llm)

		w := postChat(t, h, chatRequestBody(t, question, nil), signToken(t, "user-1"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, llm.LastSystemPrompt, retrieval.NoDocumentsSentinel)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		h := newChatHandler(t, mock.NewDB(), mock.NewLLM("x"))

		w := postChat(t, h, chatRequestBody(t, question, nil), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an empty message list", func(t *testing.T) {
		h := newChatHandler(t, mock.NewDB(), mock.NewLLM("x"))

		w := postChat(t, h, chatRequestBody(t, nil, nil), signToken(t, "user-1"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("completion failure before streaming is a json error", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.Err = errors.New("model offline")
		h := newChatHandler(t, mock.NewDB(), llm)

		w := postChat(t, h, chatRequestBody(t, question, nil), signToken(t, "user-1"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("mid-stream failure keeps partial output and appends a marker", func(t *testing.T) {
		llm := mock.NewLLM("partial answer")
		llm.Err = errors.New("connection dropped")
		llm.ErrAfter = 1
		h := newChatHandler(t, mock.NewDB(), llm)

		w := postChat(t, h, chatRequestBody(t, question, nil), signToken(t, "user-1"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "partial answer")
		assert.Contains(t, w.Body.String(), "[error: answer interrupted]")
	})
}
