package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adeoluwa-dev/chatdocs/internal/chat"
	"github.com/adeoluwa-dev/chatdocs/internal/config"
	"github.com/adeoluwa-dev/chatdocs/internal/core"
	db "github.com/adeoluwa-dev/chatdocs/internal/core/database"
	"github.com/adeoluwa-dev/chatdocs/internal/core/llm"
	"github.com/adeoluwa-dev/chatdocs/internal/core/objectstore"
	"github.com/adeoluwa-dev/chatdocs/internal/ingest"
	"github.com/adeoluwa-dev/chatdocs/internal/retrieval"
)

// App holds the constructed client handles and the HTTP server. Every
// external collaborator is built here and passed down explicitly; nothing is
// reachable as ambient global state.
type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Embedder     *llm.GeminiEmbedder
	LLM          *llm.GeminiLLM
	Ingestor     *ingest.DocumentIngestor
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	slog.Info("database initialized and ready")

	objClient, err := objectstore.NewS3Client(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	slog.Info("object storage client ready")

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	extractor := ingest.NewDocconvExtractor(false)

	ingestor := ingest.NewDocumentIngestor(dbClient, objClient, embedder, extractor, &ingest.IngestConfig{
		Bucket:        cfg.BucketName,
		TargetTokens:  cfg.ChunkTargetTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
		BatchSize:     cfg.EmbedBatchSize,
	})

	retriever := retrieval.NewCoordinator(dbClient, embedder, cfg.TopK)
	gateway := chat.NewGateway(llmProvider)

	server := NewServer(cfg, dbClient, objClient, ingestor, retriever, gateway)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Embedder:     embedder,
		LLM:          llmProvider,
		Ingestor:     ingestor,
		Server:       server,
	}, nil
}

// Close releases every client handle in reverse construction order.
func (a *App) Close() {
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
