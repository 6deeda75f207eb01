// Package mock provides in-memory implementations of the core collaborator
// interfaces for tests: a metadata/vector store, an object store, an
// embedding provider with an invocation counter, and a scripted streaming
// LLM. Each fake supports error injection so failure paths are testable
// without network access.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/models"
)

// DB is an in-memory core.DbClient. The chunk table is partitioned by
// document id, mirroring the namespace semantics of the real store.
type DB struct {
	mu     sync.Mutex
	users  map[string]*models.User
	docs   map[string]*models.Document
	chunks map[string][]models.DocumentChunk

	// Error injection. When set, the matching operation fails.
	InsertChunksErr error
	SearchErr       error

	// SearchDelay lets tests stagger per-document search completion.
	SearchDelay func(documentID string)
}

func NewDB() *DB {
	return &DB{
		users:  make(map[string]*models.User),
		docs:   make(map[string]*models.Document),
		chunks: make(map[string][]models.DocumentChunk),
	}
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == user.Email {
			return fmt.Errorf("user exists")
		}
	}
	cp := *user
	d.users[user.ID] = &cp
	return nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *doc
	d.docs[doc.ID] = &cp
	return nil
}

func (d *DB) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (d *DB) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Document
	for _, doc := range d.docs {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (d *DB) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[id]
	if !ok {
		return core.ErrNotFound
	}
	doc.Status = status
	return nil
}

func (d *DB) DeleteDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	delete(d.docs, id)
	delete(d.chunks, id)
	cp := *doc
	return &cp, nil
}

func (d *DB) NamespaceExists(ctx context.Context, documentID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.chunks[documentID]) > 0, nil
}

func (d *DB) CountDocumentChunks(ctx context.Context, documentID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.chunks[documentID]), nil
}

func (d *DB) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if d.InsertChunksErr != nil {
		return d.InsertChunksErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range chunks {
		d.chunks[ch.DocumentID] = append(d.chunks[ch.DocumentID], ch)
	}
	return nil
}

func (d *DB) SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	if d.SearchErr != nil {
		return nil, d.SearchErr
	}
	if d.SearchDelay != nil {
		d.SearchDelay(documentID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	rows := append([]models.DocumentChunk(nil), d.chunks[documentID]...)
	sort.SliceStable(rows, func(i, j int) bool {
		return l2(rows[i].Embedding, queryVec) < l2(rows[j].Embedding, queryVec)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (d *DB) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.chunks, documentID)
	return nil
}

func (d *DB) Close() error { return nil }

func l2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

var _ core.DbClient = (*DB)(nil)

// ObjectStore is an in-memory core.ObjectClient keyed by bucket/key.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	GetErr error
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func (o *ObjectStore) key(bucket, key string) string { return bucket + "/" + key }

func (o *ObjectStore) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[o.key(bucket, key)] = b
	return "https://" + bucket + ".example.com/" + key, nil
}

func (o *ObjectStore) DeleteFile(ctx context.Context, bucket, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, o.key(bucket, key))
	return nil
}

func (o *ObjectStore) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	if o.GetErr != nil {
		return nil, o.GetErr
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[o.key(bucket, key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (o *ObjectStore) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	b, err := o.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

var _ core.ObjectClient = (*ObjectStore)(nil)

// Embedder is a deterministic core.EmbeddingProvider that counts calls so
// tests can assert embedding work is never repeated.
type Embedder struct {
	mu        sync.Mutex
	calls     int
	textsSeen int

	Err error
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.textsSeen += len(texts)
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t)
	}
	return out, nil
}

// Calls reports how many embedding requests were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// TextsSeen reports the total number of texts embedded across all calls.
func (e *Embedder) TextsSeen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textsSeen
}

// deterministicVector hashes text into a small stable vector so similarity
// ordering is reproducible.
func deterministicVector(text string) []float32 {
	const dim = 8
	v := make([]float32, dim)
	seed := uint32(2166136261)
	for _, r := range text {
		seed = (seed ^ uint32(r)) * 16777619
	}
	for i := range v {
		seed = seed*1664525 + 1013904223 // LCG constants
		v[i] = float32(seed%1000) / 1000.0
	}
	return v
}

var _ core.EmbeddingProvider = (*Embedder)(nil)

// Extractor is a core.DocumentExtractor yielding scripted fragments.
type Extractor struct {
	Fragments []string
	Pages     int
	Err       error
}

func (e *Extractor) ExtractText(ctx context.Context, data []byte, contentType string) (<-chan string, int, error) {
	if e.Err != nil {
		return nil, 0, e.Err
	}
	out := make(chan string, len(e.Fragments))
	for _, f := range e.Fragments {
		out <- f
	}
	close(out)
	return out, e.Pages, nil
}

var _ core.DocumentExtractor = (*Extractor)(nil)

// LLM is a scripted core.LLMProvider. Tokens are emitted in order; ErrAfter
// (when >= 0) terminates the stream with Err after that many tokens.
type LLM struct {
	Tokens   []string
	Err      error
	ErrAfter int

	LastSystemPrompt string
}

func NewLLM(tokens ...string) *LLM {
	return &LLM{Tokens: tokens, ErrAfter: -1}
}

func (l *LLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	l.LastSystemPrompt = systemPrompt
	if l.Err != nil && l.ErrAfter < 0 {
		return "", l.Err
	}
	var out string
	for _, t := range l.Tokens {
		out += t
	}
	return out, nil
}

func (l *LLM) Stream(ctx context.Context, systemPrompt string, history []models.ChatMessage) (core.TokenStream, error) {
	l.LastSystemPrompt = systemPrompt
	if l.Err != nil && l.ErrAfter < 0 {
		return nil, l.Err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	return &scriptedStream{
		ctx:      streamCtx,
		cancel:   cancel,
		tokens:   l.Tokens,
		err:      l.Err,
		errAfter: l.ErrAfter,
	}, nil
}

type scriptedStream struct {
	ctx      context.Context
	cancel   context.CancelFunc
	tokens   []string
	pos      int
	err      error
	errAfter int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.ctx.Err() != nil {
		return "", s.ctx.Err()
	}
	if s.err != nil && s.errAfter >= 0 && s.pos >= s.errAfter {
		return "", s.err
	}
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *scriptedStream) Close() { s.cancel() }

var _ core.LLMProvider = (*LLM)(nil)
