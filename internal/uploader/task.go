package uploader

// Status is the lifecycle state of one upload task.
// Queued → Uploading → {Succeeded, Failed}; terminal states never transition.
type Status int

const (
	StatusQueued Status = iota
	StatusUploading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusUploading:
		return "uploading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is the client-side, ephemeral record of one file attachment. ClientID
// is assigned locally at admission; ServerID and URL only exist once the
// upload has succeeded. Tasks are never persisted.
type Task struct {
	ClientID string
	Name     string
	Size     int64
	Status   Status
	ServerID string
	URL      string
}

// EventKind enumerates the discrete events that drive task state.
type EventKind int

const (
	// EventAdmitted adds a new task in Uploading state.
	EventAdmitted EventKind = iota
	// EventSucceeded replaces the temporary task with its persisted reference.
	EventSucceeded
	// EventFailed removes the temporary task from the visible list.
	EventFailed
	// EventRemoved removes a task at the user's request.
	EventRemoved
)

// Event is one state transition input for the reducer.
type Event struct {
	Kind     EventKind
	Task     Task          // EventAdmitted: the admitted task
	ClientID string        // EventSucceeded/Failed/Removed: target task
	Result   *UploadResult // EventSucceeded: server-assigned reference
}

// UploadResult is the server's persisted reference for a succeeded upload.
type UploadResult struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// Reduce applies one event to the visible task list and returns the new
// list. It is a pure function: transitions are enumerable and testable in
// isolation from any I/O. Failed tasks leave no trace in the list.
func Reduce(tasks []Task, ev Event) []Task {
	switch ev.Kind {
	case EventAdmitted:
		t := ev.Task
		t.Status = StatusUploading
		return append(append([]Task(nil), tasks...), t)

	case EventSucceeded:
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ClientID == ev.ClientID && t.Status == StatusUploading {
				t.Status = StatusSucceeded
				if ev.Result != nil {
					t.ServerID = ev.Result.ID
					t.URL = ev.Result.URL
					t.Name = ev.Result.OriginalName
					t.Size = ev.Result.Size
				}
			}
			out = append(out, t)
		}
		return out

	case EventFailed:
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ClientID == ev.ClientID && t.Status == StatusUploading {
				continue
			}
			out = append(out, t)
		}
		return out

	case EventRemoved:
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ClientID == ev.ClientID || (t.ServerID != "" && t.ServerID == ev.ClientID) {
				continue
			}
			out = append(out, t)
		}
		return out

	default:
		return tasks
	}
}
