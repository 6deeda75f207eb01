package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Document statuses. A document is "uploaded" once its bytes and metadata are
// persisted, "ready" once its vector namespace is populated, and
// "needs_embedding" when the embedding phase failed after metadata was written.
const (
	StatusUploaded       = "uploaded"
	StatusReady          = "ready"
	StatusNeedsEmbedding = "needs_embedding"
)

// Document is the persisted record for one uploaded PDF. Immutable after
// creation except for Status and deletion.
type Document struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"ownerId"`
	OriginalName string    `db:"original_name" json:"originalName"`
	StoragePath  string    `db:"storage_path" json:"path"`
	PublicURL    string    `db:"public_url" json:"url"`
	SizeBytes    int64     `db:"size_bytes" json:"size"`
	ContentType  string    `db:"content_type" json:"contentType"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// DocumentChunk is one embedded span of a document's text. Chunks for a
// document form its vector namespace; they are never mutated and are removed
// only when the owning document is deleted.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	Position   int       `db:"position" json:"position"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"`
	TokenCount int       `db:"token_count" json:"tokenCount"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ChatMessage is one turn of a conversation, client-supplied and ephemeral.
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// DocumentRef identifies an attached document in a chat request. Name is the
// display name used to label the document's section in the context block.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}
