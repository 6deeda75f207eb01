package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/core/mock"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// seedChunks inserts n chunks into docID's namespace with distinct texts.
func seedChunks(t *testing.T, db *mock.DB, docID string, n int) {
	t.Helper()
	emb := mock.NewEmbedder()
	for p := 0; p < n; p++ {
		text := fmt.Sprintf("%s chunk %d body", docID, p)
		vecs, err := emb.EmbedTexts(context.Background(), []string{text})
		require.NoError(t, err)
		require.NoError(t, db.InsertDocumentChunks(context.Background(), []models.DocumentChunk{{
			ID:         fmt.Sprintf("%s-%d", docID, p),
			DocumentID: docID,
			Position:   p,
			Text:       text,
			Embedding:  vecs[0],
			TokenCount: 4,
		}}))
	}
}

func TestCoordinator_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("no documents yields the sentinel without embedding", func(t *testing.T) {
		db := mock.NewDB()
		emb := mock.NewEmbedder()
		c := NewCoordinator(db, emb, 4)

		out, err := c.Retrieve(ctx, "what is the refund policy?", nil)
		require.NoError(t, err)
		assert.Equal(t, NoDocumentsSentinel, out)
		assert.Zero(t, emb.Calls())
	})

	t.Run("empty query with documents is rejected", func(t *testing.T) {
		c := NewCoordinator(mock.NewDB(), mock.NewEmbedder(), 4)

		_, err := c.Retrieve(ctx, "   ", []models.DocumentRef{{ID: "doc-a", Name: "a.pdf"}})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("sections follow caller order", func(t *testing.T) {
		db := mock.NewDB()
		seedChunks(t, db, "doc-a", 2)
		seedChunks(t, db, "doc-b", 2)
		c := NewCoordinator(db, mock.NewEmbedder(), 4)

		out, err := c.Retrieve(ctx, "anything", []models.DocumentRef{
			{ID: "doc-b", Name: "second-uploaded.pdf"},
			{ID: "doc-a", Name: "first-uploaded.pdf"},
		})
		require.NoError(t, err)

		posB := strings.Index(out, "Document: second-uploaded.pdf")
		posA := strings.Index(out, "Document: first-uploaded.pdf")
		require.GreaterOrEqual(t, posB, 0)
		require.GreaterOrEqual(t, posA, 0)
		assert.Less(t, posB, posA, "sections must appear in the order the caller listed the documents")
	})

	t.Run("document with no chunks still gets a labeled section", func(t *testing.T) {
		db := mock.NewDB()
		c := NewCoordinator(db, mock.NewEmbedder(), 4)

		out, err := c.Retrieve(ctx, "anything", []models.DocumentRef{{ID: "doc-empty", Name: "empty.pdf"}})
		require.NoError(t, err)
		assert.Contains(t, out, "Document: empty.pdf")
		assert.NotEqual(t, NoDocumentsSentinel, out)
	})

	t.Run("query is embedded once for many documents", func(t *testing.T) {
		db := mock.NewDB()
		seedChunks(t, db, "doc-a", 1)
		seedChunks(t, db, "doc-b", 1)
		seedChunks(t, db, "doc-c", 1)
		emb := mock.NewEmbedder()
		c := NewCoordinator(db, emb, 4)

		_, err := c.Retrieve(ctx, "anything", []models.DocumentRef{
			{ID: "doc-a", Name: "a.pdf"}, {ID: "doc-b", Name: "b.pdf"}, {ID: "doc-c", Name: "c.pdf"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, emb.Calls())
	})

	t.Run("at most top-k chunks per document", func(t *testing.T) {
		db := mock.NewDB()
		seedChunks(t, db, "doc-a", 6)
		c := NewCoordinator(db, mock.NewEmbedder(), 4)

		out, err := c.Retrieve(ctx, "anything", []models.DocumentRef{{ID: "doc-a", Name: "a.pdf"}})
		require.NoError(t, err)

		included := 0
		for p := 0; p < 6; p++ {
			if strings.Contains(out, fmt.Sprintf("doc-a chunk %d body", p)) {
				included++
			}
		}
		assert.Equal(t, 4, included)
	})

	t.Run("a search failure fails the whole call", func(t *testing.T) {
		db := mock.NewDB()
		seedChunks(t, db, "doc-a", 1)
		db.SearchErr = errors.New("index offline")
		c := NewCoordinator(db, mock.NewEmbedder(), 4)

		_, err := c.Retrieve(ctx, "anything", []models.DocumentRef{{ID: "doc-a", Name: "a.pdf"}})
		var uerr *core.UpstreamError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "vector index", uerr.Service)
	})
}
