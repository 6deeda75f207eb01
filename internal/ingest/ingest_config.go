package ingest

import (
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
)

// IngestConfig tunes the pipeline.
//
// TargetTokens:  approximate tokens per chunk.
// OverlapTokens: token overlap between consecutive chunks for context bleed.
// BatchSize:     how many chunks to embed/write in one batch.
type IngestConfig struct {
	Bucket        string
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the document.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for batching and overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// NamespaceHandle is the result of an ingestion call: a binding to the
// populated vector namespace for one document. Reused is true when the
// dedup check short-circuited the call without any parse or embed work.
type NamespaceHandle struct {
	DocID      string
	ChunkCount int
	Reused     bool
}

// DocumentIngestor runs the ingestion pipeline for uploaded documents.
//
// db:        persistence for documents and their chunk namespaces.
// obj:       object storage holding the raw files.
// embedder:  embedding provider.
// extractor: text extraction from raw document bytes.
// flight:    per-docID mutual exclusion; concurrent calls for the same id
//            share one execution instead of racing the dedup check.
// jobs:      in-memory queue of document IDs for background re-ingestion.
type DocumentIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       *IngestConfig
	flight    singleflight.Group
	jobs      chan string
	logger    *slog.Logger
}
