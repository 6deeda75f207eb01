package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/adeoluwa-dev/chatdocs/internal/api/middlewares"
	"github.com/adeoluwa-dev/chatdocs/internal/config"
	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/ingest"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// DocumentHandler serves upload, listing and deletion of documents.
type DocumentHandler struct {
	db       core.DbClient
	obj      core.ObjectClient
	ingestor ingest.Ingestor
	cfg      *config.Config
	logger   *slog.Logger
}

func NewDocumentHandler(db core.DbClient, obj core.ObjectClient, ing ingest.Ingestor, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		db: db, obj: obj, ingestor: ing, cfg: cfg,
		logger: slog.Default().With("component", "documents"),
	}
}

// ownerFromRequest resolves the owner id supplied with the request and
// checks it against the authenticated subject.
func ownerFromRequest(r *http.Request, supplied string) (string, error) {
	userID := middlewares.UserID(r.Context())
	if userID == "" {
		return "", core.ErrUnauthenticated
	}
	if supplied == "" {
		return "", &core.ValidationError{Field: "ownerId", Reason: "is required"}
	}
	if supplied != userID {
		return "", core.ErrUnauthenticated
	}
	return userID, nil
}

// Upload handles POST /api/upload: validate, store the object, persist
// metadata, then run ingestion synchronously before responding. Upload
// latency includes the full embedding time.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxFileSize + (1 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	ownerID, err := ownerFromRequest(r, r.FormValue("ownerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != h.cfg.AcceptedType {
		writeError(w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}
	if header.Size > h.cfg.MaxFileSize {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("file size exceeds %dMB limit", h.cfg.MaxFileSize>>20))
		return
	}

	docID := uuid.NewString()
	cleanName := filepath.Base(header.Filename)
	key := fmt.Sprintf("%s/pdfs/%s/%s", ownerID, docID, cleanName)

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	url, err := h.obj.UploadFile(uploadCtx, h.cfg.BucketName, key, file, contentType)
	if err != nil {
		writeDomainError(w, core.Upstream("object storage", err))
		return
	}

	doc := &models.Document{
		ID:           docID,
		OwnerID:      ownerID,
		OriginalName: header.Filename,
		StoragePath:  key,
		PublicURL:    url,
		SizeBytes:    header.Size,
		ContentType:  contentType,
		Status:       models.StatusUploaded,
		CreatedAt:    time.Now(),
	}

	if err := h.db.CreateDocument(uploadCtx, doc); err != nil {
		// Compensate: the object exists but its record does not; remove the
		// orphaned object best-effort.
		if delErr := h.obj.DeleteFile(uploadCtx, h.cfg.BucketName, key); delErr != nil {
			h.logger.Error("compensating object delete failed", "key", key, "error", delErr)
		}
		writeDomainError(w, core.Upstream("metadata store", err))
		return
	}

	if _, err := h.ingestor.Ingest(uploadCtx, docID); err != nil {
		// Metadata is already persisted. The record stays, marked
		// needs_embedding by the ingestor, so the work can be retried.
		h.logger.Error("ingestion failed after upload", "doc_id", docID, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           doc.ID,
		"url":          doc.PublicURL,
		"path":         doc.StoragePath,
		"originalName": doc.OriginalName,
		"size":         doc.SizeBytes,
	})
}

// List handles GET /api/files?ownerId= and returns the owner's documents,
// newest first.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r, r.URL.Query().Get("ownerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	docs, err := h.db.ListDocumentsByOwner(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, core.Upstream("metadata store", err))
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": docs})
}

// Delete handles DELETE /api/files?fileId=&ownerId=: removes the metadata
// record (chunks cascade) and then the stored object.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r, r.URL.Query().Get("ownerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		writeDomainError(w, &core.ValidationError{Field: "fileId", Reason: "is required"})
		return
	}

	doc, err := h.db.DeleteDocument(r.Context(), fileID, ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.obj.DeleteFile(r.Context(), h.cfg.BucketName, doc.StoragePath); err != nil {
		// Metadata is gone; the orphaned object is logged, not surfaced.
		h.logger.Error("object delete failed", "key", doc.StoragePath, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
