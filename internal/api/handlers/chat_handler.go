package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/adeoluwa-dev/chatdocs/internal/api/middlewares"
	"github.com/adeoluwa-dev/chatdocs/internal/chat"
	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
	"github.com/adeoluwa-dev/chatdocs/internal/retrieval"
)

// ChatHandler serves the retrieval-augmented streaming chat endpoint.
type ChatHandler struct {
	retriever *retrieval.Coordinator
	gateway   *chat.Gateway
	logger    *slog.Logger
}

func NewChatHandler(retriever *retrieval.Coordinator, gateway *chat.Gateway) *ChatHandler {
	return &ChatHandler{
		retriever: retriever,
		gateway:   gateway,
		logger:    slog.Default().With("component", "chat-handler"),
	}
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
	Data     struct {
		Files []models.DocumentRef `json:"files"`
	} `json:"data"`
}

// Stream handles POST /api/chat. Errors are reported as a JSON envelope only
// before streaming begins; once tokens flow, a mid-stream failure terminates
// the body with an inline error marker and partial text stands.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if middlewares.UserID(ctx) == "" {
		writeDomainError(w, core.ErrUnauthenticated)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}

	query := req.Messages[len(req.Messages)-1].Content
	contextBlock, err := h.retriever.Retrieve(ctx, query, req.Data.Files)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	stream, err := h.gateway.Stream(ctx, req.Messages, contextBlock)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Tokens already written stand; terminate with an inline marker.
			h.logger.Error("stream terminated", "error", err)
			_, _ = io.WriteString(w, "\n[error: answer interrupted]")
			flusher.Flush()
			return
		}
		if _, err := io.WriteString(w, token); err != nil {
			// Client went away; cancellation propagates via the request
			// context closing the upstream connection.
			return
		}
		flusher.Flush()
	}
}
