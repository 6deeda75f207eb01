package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// NoDocumentsSentinel is the fixed context block used when a chat request
// carries no grounding documents. It is distinct from a context built from
// documents that retrieved zero chunks, which still carries document labels.
const NoDocumentsSentinel = "No relevant documents provided."

// Coordinator assembles a grounded context block from per-document
// similarity search results.
type Coordinator struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	topK     int
	logger   *slog.Logger
}

func NewCoordinator(db core.DbClient, embedder core.EmbeddingProvider, topK int) *Coordinator {
	if topK <= 0 {
		topK = 4
	}
	return &Coordinator{
		db:       db,
		embedder: embedder,
		topK:     topK,
		logger:   slog.Default().With("component", "retrieval"),
	}
}

// Retrieve embeds the query once and searches each document's namespace
// sequentially, in caller-supplied order. The resulting context block lists
// one labeled section per document, in that same order, so document ordering
// is deterministic and caller-controlled. A search failure for any document
// fails the whole call.
func (c *Coordinator) Retrieve(ctx context.Context, query string, refs []models.DocumentRef) (string, error) {
	if len(refs) == 0 {
		return NoDocumentsSentinel, nil
	}
	if strings.TrimSpace(query) == "" {
		return "", &core.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	vecs, err := c.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		if err == nil {
			err = fmt.Errorf("no embedding returned")
		}
		return "", core.Upstream("embedding", err)
	}
	queryVec := vecs[0]

	var sb strings.Builder
	for _, ref := range refs {
		chunks, err := c.db.SearchDocumentChunks(ctx, ref.ID, queryVec, c.topK)
		if err != nil {
			return "", core.Upstream("vector index", fmt.Errorf("document %s: %w", ref.ID, err))
		}

		sb.WriteString("Document: ")
		sb.WriteString(ref.Name)
		sb.WriteString("\n")
		for _, ch := range chunks {
			sb.WriteString(ch.Text)
			sb.WriteString("\n\n")
		}
		c.logger.Debug("retrieved chunks", "doc_id", ref.ID, "count", len(chunks))
	}

	return sb.String(), nil
}
