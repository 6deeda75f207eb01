package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
)

// File is one candidate attachment as presented by the caller.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     []byte
}

// UploadClient performs the per-file network operations.
type UploadClient interface {
	Upload(ctx context.Context, ownerID string, f File) (*UploadResult, error)
	Delete(ctx context.Context, fileID, ownerID string) error
}

// Notifier receives short, user-visible notices (per-file validation
// rejections, upload failures). Internal error detail is logged, not shown.
type Notifier func(msg string)

// Options tune the orchestrator.
type Options struct {
	MaxFiles     int
	MaxFileSize  int64
	AcceptedType string
	Notify       Notifier
}

// Orchestrator owns the visible list of attached documents and drives
// concurrent uploads against it. All list mutations flow through the Reduce
// state machine; each dispatched file settles independently, so one failure
// never cancels or delays the others.
type Orchestrator struct {
	mu      sync.Mutex
	tasks   []Task
	pending sync.WaitGroup

	client  UploadClient
	pool    *ants.Pool
	ownerID string
	opts    Options
	logger  *slog.Logger
}

func New(client UploadClient, ownerID string, opts Options) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("upload client required")
	}
	if ownerID == "" {
		return nil, core.ErrUnauthenticated
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 10
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 << 20
	}
	if opts.AcceptedType == "" {
		opts.AcceptedType = "application/pdf"
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}

	// One pool slot per allowed attachment; admitted files never queue
	// behind each other beyond this bound.
	pool, err := ants.NewPool(opts.MaxFiles)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		client:  client,
		pool:    pool,
		ownerID: ownerID,
		opts:    opts,
		logger:  slog.Default().With("component", "uploader"),
	}, nil
}

// Release frees the worker pool.
func (o *Orchestrator) Release() {
	o.pool.Release()
}

// Add validates and dispatches a batch of candidate files.
//
// The whole batch is rejected only when the pre-existing attached count plus
// the incoming count exceeds the maximum. Individual invalid files are
// reported through the notifier and skipped without aborting the batch.
// Admitted files appear in the visible list as Uploading before any network
// activity; completions are reconciled in whatever order they finish.
func (o *Orchestrator) Add(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}

	o.mu.Lock()
	if len(o.tasks)+len(files) > o.opts.MaxFiles {
		o.mu.Unlock()
		return &core.ValidationError{
			Field:  "files",
			Reason: fmt.Sprintf("maximum %d files allowed", o.opts.MaxFiles),
		}
	}

	type admission struct {
		task Task
		file File
	}
	var admitted []admission
	for _, f := range files {
		if f.ContentType != o.opts.AcceptedType {
			o.opts.Notify(fmt.Sprintf("%s is not a PDF file", f.Name))
			continue
		}
		if f.Size > o.opts.MaxFileSize {
			o.opts.Notify(fmt.Sprintf("%s exceeds %dMB size limit", f.Name, o.opts.MaxFileSize>>20))
			continue
		}

		t := Task{ClientID: uuid.NewString(), Name: f.Name, Size: f.Size}
		o.tasks = Reduce(o.tasks, Event{Kind: EventAdmitted, Task: t})
		admitted = append(admitted, admission{task: t, file: f})
	}
	o.mu.Unlock()

	for _, a := range admitted {
		a := a
		o.pending.Add(1)
		if err := o.pool.Submit(func() {
			defer o.pending.Done()
			o.settle(ctx, a.task, a.file)
		}); err != nil {
			// Pool rejection settles the task as failed, same as a network
			// error would.
			o.pending.Done()
			o.fail(a.task, err)
		}
	}
	return nil
}

// settle runs one upload to completion and reconciles the result.
func (o *Orchestrator) settle(ctx context.Context, t Task, f File) {
	res, err := o.client.Upload(ctx, o.ownerID, f)
	if err != nil {
		o.fail(t, err)
		return
	}

	o.mu.Lock()
	o.tasks = Reduce(o.tasks, Event{Kind: EventSucceeded, ClientID: t.ClientID, Result: res})
	o.mu.Unlock()
	o.logger.Info("upload succeeded", "name", t.Name, "server_id", res.ID)
}

func (o *Orchestrator) fail(t Task, err error) {
	o.mu.Lock()
	o.tasks = Reduce(o.tasks, Event{Kind: EventFailed, ClientID: t.ClientID})
	o.mu.Unlock()
	o.logger.Error("upload failed", "name", t.Name, "error", err)
	o.opts.Notify(fmt.Sprintf("Failed to upload %s", t.Name))
}

// Wait blocks until all dispatched uploads have settled.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// Remove takes a client or server identifier, removes the matching task from
// the visible list immediately, and, for already-succeeded uploads, issues a
// best-effort server deletion. A failed deletion is logged and never restores
// the entry.
func (o *Orchestrator) Remove(ctx context.Context, id string) {
	o.mu.Lock()
	var target *Task
	for idx := range o.tasks {
		t := &o.tasks[idx]
		if t.ClientID == id || (t.ServerID != "" && t.ServerID == id) {
			cp := *t
			target = &cp
			break
		}
	}
	if target == nil {
		o.mu.Unlock()
		return
	}
	o.tasks = Reduce(o.tasks, Event{Kind: EventRemoved, ClientID: id})
	o.mu.Unlock()

	if target.Status == StatusSucceeded {
		go func() {
			if err := o.client.Delete(ctx, target.ServerID, o.ownerID); err != nil {
				o.logger.Error("server-side delete failed", "server_id", target.ServerID, "error", err)
			}
		}()
	}
}

// Attachments returns a snapshot of the visible task list: settled items
// plus in-flight uploads, with failed items absent.
func (o *Orchestrator) Attachments() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Task, len(o.tasks))
	copy(out, o.tasks)
	return out
}
