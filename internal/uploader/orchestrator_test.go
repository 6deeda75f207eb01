package uploader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploadClient records calls and lets tests fail or stall specific files.
type fakeUploadClient struct {
	mu      sync.Mutex
	uploads int
	deleted []string

	failFor map[string]bool
	gate    chan struct{} // when set, Upload blocks until the gate closes
}

func (f *fakeUploadClient) Upload(ctx context.Context, ownerID string, file File) (*UploadResult, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.uploads++
	f.mu.Unlock()

	if f.failFor[file.Name] {
		return nil, errors.New("server rejected the file")
	}
	return &UploadResult{
		ID:           "srv-" + file.Name,
		URL:          "https://docs.example.com/" + file.Name,
		Path:         ownerID + "/pdfs/" + file.Name,
		OriginalName: file.Name,
		Size:         file.Size,
	}, nil
}

func (f *fakeUploadClient) Delete(ctx context.Context, fileID, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeUploadClient) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func (f *fakeUploadClient) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func pdf(name string, size int64) File {
	return File{Name: name, Size: size, ContentType: "application/pdf", Content: []byte("%PDF")}
}

func TestOrchestrator_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("files settle independently, failures leave no trace", func(t *testing.T) {
		client := &fakeUploadClient{failFor: map[string]bool{"bad.pdf": true}}
		var notices []string
		var nmu sync.Mutex
		orch, err := New(client, "user-1", Options{
			Notify: func(msg string) {
				nmu.Lock()
				notices = append(notices, msg)
				nmu.Unlock()
			},
		})
		require.NoError(t, err)
		defer orch.Release()

		require.NoError(t, orch.Add(ctx, []File{
			pdf("first.pdf", 100), pdf("bad.pdf", 100), pdf("third.pdf", 100),
		}))
		orch.Wait()

		tasks := orch.Attachments()
		require.Len(t, tasks, 2)
		names := []string{tasks[0].Name, tasks[1].Name}
		assert.ElementsMatch(t, []string{"first.pdf", "third.pdf"}, names)
		for _, task := range tasks {
			assert.Equal(t, StatusSucceeded, task.Status)
			assert.NotEmpty(t, task.ServerID)
		}

		nmu.Lock()
		defer nmu.Unlock()
		require.Len(t, notices, 1)
		assert.Contains(t, notices[0], "bad.pdf")
	})

	t.Run("whole batch rejected above the attachment maximum", func(t *testing.T) {
		client := &fakeUploadClient{}
		orch, err := New(client, "user-1", Options{MaxFiles: 2})
		require.NoError(t, err)
		defer orch.Release()

		err = orch.Add(ctx, []File{pdf("a.pdf", 1), pdf("b.pdf", 1), pdf("c.pdf", 1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum 2 files")

		orch.Wait()
		assert.Empty(t, orch.Attachments())
		assert.Zero(t, client.uploadCount())
	})

	t.Run("invalid files are skipped without aborting the batch", func(t *testing.T) {
		client := &fakeUploadClient{}
		var notices []string
		var nmu sync.Mutex
		orch, err := New(client, "user-1", Options{
			MaxFileSize: 1 << 10,
			Notify: func(msg string) {
				nmu.Lock()
				notices = append(notices, msg)
				nmu.Unlock()
			},
		})
		require.NoError(t, err)
		defer orch.Release()

		files := []File{
			pdf("ok.pdf", 100),
			{Name: "notes.txt", Size: 10, ContentType: "text/plain"},
			pdf("huge.pdf", 1<<20),
		}
		require.NoError(t, orch.Add(ctx, files))
		orch.Wait()

		tasks := orch.Attachments()
		require.Len(t, tasks, 1)
		assert.Equal(t, "ok.pdf", tasks[0].Name)

		nmu.Lock()
		defer nmu.Unlock()
		assert.Len(t, notices, 2)
	})

	t.Run("admitted files are visible before any upload completes", func(t *testing.T) {
		gate := make(chan struct{})
		client := &fakeUploadClient{gate: gate}
		orch, err := New(client, "user-1", Options{})
		require.NoError(t, err)
		defer orch.Release()

		require.NoError(t, orch.Add(ctx, []File{pdf("slow.pdf", 100)}))

		tasks := orch.Attachments()
		require.Len(t, tasks, 1)
		assert.Equal(t, StatusUploading, tasks[0].Status)
		assert.Empty(t, tasks[0].ServerID)

		close(gate)
		orch.Wait()

		tasks = orch.Attachments()
		require.Len(t, tasks, 1)
		assert.Equal(t, StatusSucceeded, tasks[0].Status)
	})

	t.Run("concurrent batches do not interfere", func(t *testing.T) {
		client := &fakeUploadClient{failFor: map[string]bool{"b1.pdf": true}}
		orch, err := New(client, "user-1", Options{MaxFiles: 10})
		require.NoError(t, err)
		defer orch.Release()

		require.NoError(t, orch.Add(ctx, []File{pdf("a1.pdf", 1), pdf("a2.pdf", 1)}))
		require.NoError(t, orch.Add(ctx, []File{pdf("b1.pdf", 1), pdf("b2.pdf", 1)}))
		orch.Wait()

		var names []string
		for _, task := range orch.Attachments() {
			names = append(names, task.Name)
		}
		assert.ElementsMatch(t, []string{"a1.pdf", "a2.pdf", "b2.pdf"}, names)
	})
}

func TestOrchestrator_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the task and deletes the server copy", func(t *testing.T) {
		client := &fakeUploadClient{}
		orch, err := New(client, "user-1", Options{})
		require.NoError(t, err)
		defer orch.Release()

		require.NoError(t, orch.Add(ctx, []File{pdf("doc.pdf", 100)}))
		orch.Wait()

		tasks := orch.Attachments()
		require.Len(t, tasks, 1)
		serverID := tasks[0].ServerID

		orch.Remove(ctx, serverID)
		assert.Empty(t, orch.Attachments())

		require.Eventually(t, func() bool {
			ids := client.deletedIDs()
			return len(ids) == 1 && ids[0] == serverID
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("removing an unknown id is a no-op", func(t *testing.T) {
		client := &fakeUploadClient{}
		orch, err := New(client, "user-1", Options{})
		require.NoError(t, err)
		defer orch.Release()

		orch.Remove(ctx, "nothing-here")
		assert.Empty(t, orch.Attachments())
		assert.Empty(t, client.deletedIDs())
	})

	t.Run("removing an in-flight upload issues no server delete", func(t *testing.T) {
		gate := make(chan struct{})
		client := &fakeUploadClient{gate: gate}
		orch, err := New(client, "user-1", Options{})
		require.NoError(t, err)
		defer orch.Release()

		require.NoError(t, orch.Add(ctx, []File{pdf("slow.pdf", 100)}))

		tasks := orch.Attachments()
		require.Len(t, tasks, 1)
		orch.Remove(ctx, tasks[0].ClientID)
		assert.Empty(t, orch.Attachments())

		close(gate)
		orch.Wait()
		assert.Empty(t, client.deletedIDs())
	})
}

func TestOrchestrator_New(t *testing.T) {
	t.Run("requires a client", func(t *testing.T) {
		_, err := New(nil, "user-1", Options{})
		require.Error(t, err)
	})

	t.Run("requires an owner", func(t *testing.T) {
		_, err := New(&fakeUploadClient{}, "", Options{})
		require.Error(t, err)
	})
}

var _ UploadClient = (*fakeUploadClient)(nil)

// Guard against accidentally renaming the display strings the CLI prints.
func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		StatusQueued:    "queued",
		StatusUploading: "uploading",
		StatusSucceeded: "succeeded",
		StatusFailed:    "failed",
	} {
		assert.Equal(t, want, s.String())
	}
	assert.True(t, strings.HasPrefix(Status(99).String(), "unknown"))
}
