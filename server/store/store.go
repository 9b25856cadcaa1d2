// Package store provides task and push-config persistence behind narrow
// interfaces, with in-memory, redis and postgres drivers.
package store

import (
	"context"

	"github.com/gate4ai/a2a/schema"
)

// TaskUpdate is a partial update. Nil fields are left untouched; non-nil
// fields replace the stored value wholesale.
type TaskUpdate struct {
	Status    *schema.TaskStatus
	History   []schema.Message
	Artifacts []schema.Artifact
	Metadata  *map[string]interface{}
}

// ListFilter narrows and pages a task listing. Filters apply before
// pagination. A zero Limit means no limit.
type ListFilter struct {
	ContextID *string
	State     *schema.TaskState
	Offset    int
	Limit     int
}

// TaskStore persists tasks. Implementations hand out deep copies: mutating a
// returned task never changes stored state, and stored state never changes a
// task the caller still holds.
//
// Get returns (nil, nil) when the id is unknown. Update is a silent no-op on
// a missing id. Delete is idempotent. List returns tasks ordered by status
// timestamp, newest first.
type TaskStore interface {
	Create(ctx context.Context, task *schema.Task) error
	Get(ctx context.Context, id string) (*schema.Task, error)
	Update(ctx context.Context, id string, update TaskUpdate) error
	List(ctx context.Context, filter ListFilter) ([]*schema.Task, error)
	Delete(ctx context.Context, id string) error
}

// PushConfigStore persists webhook configs keyed by (taskID, configID).
// Get returns (nil, nil) when no such config exists; Delete reports whether
// a config was removed.
type PushConfigStore interface {
	Create(ctx context.Context, taskID string, config *schema.PushNotificationConfig) error
	Get(ctx context.Context, taskID, configID string) (*schema.PushNotificationConfig, error)
	List(ctx context.Context, taskID string) ([]*schema.PushNotificationConfig, error)
	Delete(ctx context.Context, taskID, configID string) (bool, error)
}

func matchesFilter(task *schema.Task, filter ListFilter) bool {
	if filter.ContextID != nil && task.ContextID != *filter.ContextID {
		return false
	}
	if filter.State != nil && task.Status.State != *filter.State {
		return false
	}
	return true
}

func paginate(tasks []*schema.Task, filter ListFilter) []*schema.Task {
	if filter.Offset >= len(tasks) {
		return []*schema.Task{}
	}
	tasks = tasks[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(tasks) {
		tasks = tasks[:filter.Limit]
	}
	return tasks
}
