package core

import (
	"context"
	"io"

	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// DbClient defines all persistence operations the higher layers need.
// It abstracts Postgres/pgvector so no component depends on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	DeleteDocument(ctx context.Context, id, ownerID string) (*models.Document, error)

	// NamespaceExists reports whether any chunks are stored for the document.
	// This is the advisory dedup check; it is not atomic with a later insert.
	NamespaceExists(ctx context.Context, documentID string) (bool, error)
	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	CountDocumentChunks(ctx context.Context, documentID string) (int, error)
	SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, documentID string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// EmbeddingProvider turns text into vectors for similarity search.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenStream is a pull-based, one-shot, cancellable token sequence. Recv
// blocks for the next token and returns io.EOF on normal completion or a
// terminal error otherwise; tokens already delivered are never retracted.
// Close cancels the underlying connection. Consuming a stream twice is not
// supported.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// LLMProvider is the completion service.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Stream sends the conversation in streaming mode. The final message in
	// history must be the user's current turn.
	Stream(ctx context.Context, systemPrompt string, history []models.ChatMessage) (TokenStream, error)
}

// DocumentExtractor extracts text from raw document bytes and delivers it as
// an ordered stream of fragments. PageCount is reported for parse validation.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (frags <-chan string, pages int, err error)
}
