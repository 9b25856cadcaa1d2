package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gate4ai/a2a/schema"
)

func makeTask(id, contextID string, state schema.TaskState, ts time.Time) *schema.Task {
	return &schema.Task{
		ID:        id,
		ContextID: contextID,
		Status:    schema.TaskStatus{State: state, Timestamp: ts},
		History: []schema.Message{
			{Role: schema.RoleUser, Parts: []schema.Part{schema.NewTextPart("hi")}},
		},
	}
}

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	task := makeTask("task_1", "ctx_1", schema.TaskStateWorking, time.Now().UTC())
	require.NoError(t, s.Create(ctx, task))

	got, err := s.Get(ctx, "task_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task, got)

	missing, err := s.Get(ctx, "task_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStoreDeepCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	task := makeTask("task_1", "ctx_1", schema.TaskStateWorking, time.Now().UTC())
	require.NoError(t, s.Create(ctx, task))

	// Mutating the caller's task after Create must not affect the store.
	*task.History[0].Parts[0].Text = "mutated after create"
	got, err := s.Get(ctx, "task_1")
	require.NoError(t, err)
	assert.Equal(t, "hi", *got.History[0].Parts[0].Text)

	// Mutating a returned task must not affect the store either.
	*got.History[0].Parts[0].Text = "mutated after get"
	again, err := s.Get(ctx, "task_1")
	require.NoError(t, err)
	assert.Equal(t, "hi", *again.History[0].Parts[0].Text)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	ts := time.Now().UTC()
	require.NoError(t, s.Create(ctx, makeTask("task_1", "ctx_1", schema.TaskStateWorking, ts)))

	newStatus := schema.TaskStatus{State: schema.TaskStateCompleted, Timestamp: ts.Add(time.Second)}
	require.NoError(t, s.Update(ctx, "task_1", TaskUpdate{Status: &newStatus}))

	got, err := s.Get(ctx, "task_1")
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateCompleted, got.Status.State)
	// Untouched fields survive a partial update.
	assert.Len(t, got.History, 1)

	// Update on a missing id is a silent no-op.
	require.NoError(t, s.Update(ctx, "task_nope", TaskUpdate{Status: &newStatus}))
}

func TestMemoryStoreListOrderFilterPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	base := time.Now().UTC()
	require.NoError(t, s.Create(ctx, makeTask("task_old", "ctx_a", schema.TaskStateCompleted, base.Add(-2*time.Minute))))
	require.NoError(t, s.Create(ctx, makeTask("task_mid", "ctx_b", schema.TaskStateWorking, base.Add(-time.Minute))))
	require.NoError(t, s.Create(ctx, makeTask("task_new", "ctx_a", schema.TaskStateWorking, base)))

	all, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "task_new", all[0].ID)
	assert.Equal(t, "task_mid", all[1].ID)
	assert.Equal(t, "task_old", all[2].ID)

	ctxA := "ctx_a"
	byContext, err := s.List(ctx, ListFilter{ContextID: &ctxA})
	require.NoError(t, err)
	require.Len(t, byContext, 2)
	assert.Equal(t, "task_new", byContext[0].ID)
	assert.Equal(t, "task_old", byContext[1].ID)

	working := schema.TaskStateWorking
	byState, err := s.List(ctx, ListFilter{State: &working})
	require.NoError(t, err)
	require.Len(t, byState, 2)

	// Filters apply before pagination.
	paged, err := s.List(ctx, ListFilter{ContextID: &ctxA, Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "task_old", paged[0].ID)

	limited, err := s.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	beyond, err := s.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	require.NoError(t, s.Create(ctx, makeTask("task_1", "ctx_1", schema.TaskStateWorking, time.Now().UTC())))
	require.NoError(t, s.Delete(ctx, "task_1"))

	got, err := s.Get(ctx, "task_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Idempotent.
	require.NoError(t, s.Delete(ctx, "task_1"))
}
