package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
	"github.com/adeoluwa-dev/chatdocs/internal/retrieval"
)

const preamble = "You are a helpful assistant. Use the following context from uploaded documents " +
	"to answer the user's question accurately. If the context doesn't provide enough " +
	"information, rely on your general knowledge but indicate that the answer is based " +
	"on general knowledge."

// Gateway builds the grounded prompt and relays the completion service's
// streamed answer.
type Gateway struct {
	llm    core.LLMProvider
	logger *slog.Logger
}

func NewGateway(llm core.LLMProvider) *Gateway {
	return &Gateway{
		llm:    llm,
		logger: slog.Default().With("component", "chat"),
	}
}

// SystemPrompt combines the fixed behavioral preamble with the context block.
// An empty block falls back to the no-documents sentinel.
func SystemPrompt(contextBlock string) string {
	if contextBlock == "" {
		contextBlock = retrieval.NoDocumentsSentinel
	}
	return fmt.Sprintf("%s\n\nContext:\n%s", preamble, contextBlock)
}

// Stream invokes the completion service in streaming mode with the grounded
// system instruction prepended to the caller's history. The returned stream
// is live and one-shot: it delivers tokens as they arrive, Close cancels the
// upstream connection, and a mid-stream failure surfaces as a terminal error
// without retracting tokens already delivered.
func (g *Gateway) Stream(ctx context.Context, history []models.ChatMessage, contextBlock string) (core.TokenStream, error) {
	if len(history) == 0 {
		return nil, &core.ValidationError{Field: "messages", Reason: "must not be empty"}
	}
	last := history[len(history)-1]
	if last.Role != "user" || last.Content == "" {
		return nil, &core.ValidationError{Field: "messages", Reason: "last message must be a non-empty user turn"}
	}

	stream, err := g.llm.Stream(ctx, SystemPrompt(contextBlock), history)
	if err != nil {
		return nil, core.Upstream("completion service", err)
	}
	g.logger.Debug("stream opened", "history_len", len(history))
	return stream, nil
}
