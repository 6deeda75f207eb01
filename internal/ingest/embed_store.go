package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// embedAndPersist consumes chunks, embeds them in batches, and writes them to
// the document's namespace. It is the downstream sink of the pipeline and
// returns the number of chunks written.
func (i *DocumentIngestor) embedAndPersist(
	ctx context.Context,
	docID string,
	in <-chan chunk,
	batchSize int,
) (int, error) {
	batch := make([]chunk, 0, batchSize)
	written := 0

	// flush embeds the current batch and inserts it into the namespace.
	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}

		texts := make([]string, len(items))
		for idx := range items {
			texts[idx] = items[idx].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(items))
		}

		rows := make([]models.DocumentChunk, len(items))
		for k := range items {
			rows[k] = models.DocumentChunk{
				ID:         uuid.NewString(),
				DocumentID: docID,
				Text:       items[k].Text,
				Embedding:  vecs[k],
				Position:   items[k].Pos,
				TokenCount: items[k].TokenCnt,
			}
		}
		if err := i.db.InsertDocumentChunks(ctx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		written += len(rows)
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(batch); err != nil {
				return written, err
			}
			batch = batch[:0]
		}
	}
	// Final tail.
	if err := flush(batch); err != nil {
		return written, err
	}
	return written, nil
}
