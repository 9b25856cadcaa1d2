package schema

import "time"

// Event type identifiers used on streams and webhook payloads.
const (
	EventTypeStatusUpdate   = "status-update"
	EventTypeArtifactUpdate = "artifact-update"
	EventTypeToken          = "token"
)

// TaskStatusUpdateEvent signals a change in the task's status.
type TaskStatusUpdateEvent struct {
	// Type identifier, always "status-update".
	Type string `json:"type"`
	// The ID of the task being updated.
	TaskID string `json:"taskId"`
	// The new status of the task.
	Status TaskStatus `json:"status"`
	// When the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// TaskArtifactUpdateEvent signals a new artifact.
type TaskArtifactUpdateEvent struct {
	// Type identifier, always "artifact-update".
	Type string `json:"type"`
	// The ID of the task associated with the artifact.
	TaskID string `json:"taskId"`
	// The artifact data.
	Artifact Artifact `json:"artifact"`
	// When the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// TokenEvent carries one incremental output token. Token events appear only
// on streams, never on webhooks.
type TokenEvent struct {
	// Type identifier, always "token".
	Type string `json:"type"`
	// The ID of the task producing the token.
	TaskID string `json:"taskId"`
	// The token text.
	Token string `json:"token"`
	// When the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}
