package uploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	t.Run("admitted appends an uploading task", func(t *testing.T) {
		out := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1", Name: "a.pdf", Size: 42}})
		require.Len(t, out, 1)
		assert.Equal(t, StatusUploading, out[0].Status)
		assert.Equal(t, "a.pdf", out[0].Name)
	})

	t.Run("succeeded replaces the placeholder with the server reference", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1", Name: "draft.pdf", Size: 10}})
		out := Reduce(tasks, Event{
			Kind:     EventSucceeded,
			ClientID: "c1",
			Result: &UploadResult{
				ID: "srv-1", URL: "https://bucket/key", OriginalName: "draft.pdf", Size: 10,
			},
		})
		require.Len(t, out, 1)
		assert.Equal(t, StatusSucceeded, out[0].Status)
		assert.Equal(t, "srv-1", out[0].ServerID)
		assert.Equal(t, "https://bucket/key", out[0].URL)
	})

	t.Run("succeeded for an unknown client id is a no-op", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1"}})
		out := Reduce(tasks, Event{Kind: EventSucceeded, ClientID: "other", Result: &UploadResult{ID: "x"}})
		require.Len(t, out, 1)
		assert.Equal(t, StatusUploading, out[0].Status)
		assert.Empty(t, out[0].ServerID)
	})

	t.Run("failed removes only the matching task", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1"}})
		tasks = Reduce(tasks, Event{Kind: EventAdmitted, Task: Task{ClientID: "c2"}})

		out := Reduce(tasks, Event{Kind: EventFailed, ClientID: "c1"})
		require.Len(t, out, 1)
		assert.Equal(t, "c2", out[0].ClientID)
	})

	t.Run("removed matches by client id", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1"}})
		out := Reduce(tasks, Event{Kind: EventRemoved, ClientID: "c1"})
		assert.Empty(t, out)
	})

	t.Run("removed matches by server id", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1"}})
		tasks = Reduce(tasks, Event{Kind: EventSucceeded, ClientID: "c1", Result: &UploadResult{ID: "srv-1"}})

		out := Reduce(tasks, Event{Kind: EventRemoved, ClientID: "srv-1"})
		assert.Empty(t, out)
	})

	t.Run("input list is never mutated", func(t *testing.T) {
		tasks := Reduce(nil, Event{Kind: EventAdmitted, Task: Task{ClientID: "c1"}})
		snapshot := append([]Task(nil), tasks...)

		_ = Reduce(tasks, Event{Kind: EventSucceeded, ClientID: "c1", Result: &UploadResult{ID: "srv-1"}})
		_ = Reduce(tasks, Event{Kind: EventFailed, ClientID: "c1"})
		assert.Equal(t, snapshot, tasks)
	})
}
