package schema

import "time"

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	// TaskStateRejected is modeled for wire compatibility but never produced
	// by the core engine; policy layers may use it.
	TaskStateRejected TaskState = "rejected"
)

// Terminal reports whether no further state transitions are permitted.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

// TaskStatus captures the current state of a task together with the moment it
// was entered and an optional human-readable message from the agent.
type TaskStatus struct {
	// The lifecycle state. (Required)
	State TaskState `json:"state"`
	// When this state was entered. (Required)
	Timestamp time.Time `json:"timestamp"`
	// Optional message associated with this status (e.g. a failure reason or
	// an input prompt).
	Message *Message `json:"message,omitempty"`
	// Optional structured error detail for failed states.
	ErrorDetails *map[string]interface{} `json:"errorDetails,omitempty"`
}

// Task represents one request-response execution (possibly multi-turn) scoped
// to a single agent.
type Task struct {
	// Process-unique opaque identifier, shaped like "task_<uuid>". (Required)
	ID string `json:"id"`
	// Opaque grouping key shared across multi-turn conversations. (Required)
	ContextID string `json:"contextId"`
	// Current status. (Required)
	Status TaskStatus `json:"status"`
	// Ordered message history, oldest first. Append-only.
	History []Message `json:"history,omitempty"`
	// Artifacts produced by the runner.
	Artifacts []Artifact `json:"artifacts,omitempty"`
	// Optional free-form metadata.
	Metadata *map[string]interface{} `json:"metadata,omitempty"`
}

// Artifact is a produced output other than conversational text, addressable
// by id.
type Artifact struct {
	// Opaque identifier, shaped like "art_<uuid>". (Required)
	ID string `json:"id"`
	// Ordered content parts. (Required, non-empty)
	Parts []Part `json:"parts"`
	// Optional top-level MIME type of the artifact.
	MimeType *string `json:"mimeType,omitempty"`
	// Optional human-readable name.
	Name *string `json:"name,omitempty"`
}
