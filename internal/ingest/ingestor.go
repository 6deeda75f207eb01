package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// Ingestor is the ingestion pipeline contract.
type Ingestor interface {
	// Ingest produces (or reuses) the vector namespace for docID.
	Ingest(ctx context.Context, docID string) (*NamespaceHandle, error)

	// Enqueue schedules background re-ingestion of docID.
	Enqueue(docID string)

	// Start runs background workers draining the queue.
	Start(ctx context.Context, numWorkers int)
}

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, extractor core.DocumentExtractor, cfg *IngestConfig) *DocumentIngestor {
	return &DocumentIngestor{
		db: db, obj: obj, embedder: emb, extractor: extractor, cfg: cfg,
		jobs:   make(chan string, 64),
		logger: slog.Default().With("component", "ingestor"),
	}
}

// Ingest builds the vector namespace for docID, or returns a handle to the
// existing one. Idempotent: once a namespace exists, no fetch, parse, or
// embedding is repeated for that id. Concurrent calls for the same id are
// collapsed into a single execution; latecomers receive the shared result.
func (i *DocumentIngestor) Ingest(ctx context.Context, docID string) (*NamespaceHandle, error) {
	if docID == "" {
		return nil, &core.ValidationError{Field: "docId", Reason: "must not be empty"}
	}

	v, err, shared := i.flight.Do(docID, func() (interface{}, error) {
		return i.ingestOne(ctx, docID)
	})
	if err != nil {
		return nil, err
	}

	handle := v.(*NamespaceHandle)
	if shared {
		// A concurrent caller drove the pipeline; from this caller's view the
		// work was deduplicated.
		dup := *handle
		dup.Reused = true
		return &dup, nil
	}
	return handle, nil
}

func (i *DocumentIngestor) ingestOne(ctx context.Context, docID string) (*NamespaceHandle, error) {
	exists, err := i.db.NamespaceExists(ctx, docID)
	if err != nil {
		return nil, core.Upstream("vector index", err)
	}
	if exists {
		count, err := i.db.CountDocumentChunks(ctx, docID)
		if err != nil {
			return nil, core.Upstream("vector index", err)
		}
		i.logger.Info("namespace exists, reusing embeddings", "doc_id", docID, "chunks", count)
		return &NamespaceHandle{DocID: docID, ChunkCount: count, Reused: true}, nil
	}

	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return nil, core.Upstream("metadata store", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", docID, core.ErrNotFound)
	}

	procCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	data, err := i.obj.GetFile(procCtx, i.cfg.Bucket, doc.StoragePath)
	if err != nil {
		i.markFailed(docID)
		return nil, core.Upstream("object storage", err)
	}

	frags, pages, err := i.extractor.ExtractText(procCtx, data, doc.ContentType)
	if err != nil {
		i.markFailed(docID)
		return nil, core.Upstream("parser", err)
	}
	i.logger.Info("extracted document", "doc_id", docID, "pages", pages)

	// Tie the chunking and embedding stages together; any error cancels both.
	g, gctx := errgroup.WithContext(procCtx)

	chunkCh := i.streamChunk(gctx, g, frags, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	var written int
	g.Go(func() error {
		n, err := i.embedAndPersist(gctx, docID, chunkCh, i.cfg.BatchSize)
		written = n
		return err
	})

	if err := g.Wait(); err != nil {
		// The namespace may be partially populated at this point; the record
		// is marked needs_embedding so a later pass can rebuild it.
		i.markFailed(docID)
		return nil, core.Upstream("embedding", err)
	}

	if err := i.db.UpdateDocumentStatus(ctx, docID, models.StatusReady); err != nil {
		i.logger.Warn("status update failed after ingestion", "doc_id", docID, "error", err)
	}

	i.logger.Info("namespace populated", "doc_id", docID, "chunks", written)
	return &NamespaceHandle{DocID: docID, ChunkCount: written}, nil
}

func (i *DocumentIngestor) markFailed(docID string) {
	if err := i.db.UpdateDocumentStatus(context.Background(), docID, models.StatusNeedsEmbedding); err != nil {
		i.logger.Warn("could not mark document for re-embedding", "doc_id", docID, "error", err)
	}
}

// Enqueue schedules a document ID for background ingestion. If the queue is
// full, this call blocks until space frees up.
func (i *DocumentIngestor) Enqueue(docID string) {
	i.jobs <- docID
}

// Start runs numWorkers goroutines draining the job queue. Used for
// re-ingesting documents left in needs_embedding.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.logger.Info("ingest worker shutting down", "worker", w)
					return
				case docID := <-i.jobs:
					if _, err := i.Ingest(ctx, docID); err != nil {
						i.logger.Error("background ingestion failed", "worker", w, "doc_id", docID, "error", err)
					}
				}
			}
		}(w)
	}
}

var _ Ingestor = (*DocumentIngestor)(nil)
