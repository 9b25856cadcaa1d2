package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
)

// Driver integration tests run only against live backends. Point
// A2A_TEST_REDIS_ADDR / A2A_TEST_POSTGRES_DSN at test instances to enable
// them.

func exerciseTaskStore(t *testing.T, s TaskStore) {
	t.Helper()
	ctx := context.Background()

	id := "task_" + uuid.NewString()
	contextID := "ctx_" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)

	task := makeTask(id, contextID, schema.TaskStateWorking, base)
	require.NoError(t, s.Create(ctx, task))
	defer s.Delete(ctx, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, contextID, got.ContextID)
	assert.Equal(t, schema.TaskStateWorking, got.Status.State)

	newStatus := schema.TaskStatus{State: schema.TaskStateCompleted, Timestamp: base.Add(time.Second)}
	require.NoError(t, s.Update(ctx, id, TaskUpdate{Status: &newStatus}))

	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateCompleted, got.Status.State)
	assert.Len(t, got.History, 1)

	list, err := s.List(ctx, ListFilter{ContextID: &contextID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	require.NoError(t, s.Delete(ctx, id))
	gone, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRedisTaskStore(t *testing.T) {
	addr := os.Getenv("A2A_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("A2A_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	s, err := NewRedisTaskStore(client, WithKeyPrefix("a2a:test:"+uuid.NewString()+":"))
	require.NoError(t, err)
	exerciseTaskStore(t, s)
}

func TestRedisTaskStoreTTL(t *testing.T) {
	addr := os.Getenv("A2A_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("A2A_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	s, err := NewRedisTaskStore(client, WithTTL(time.Hour))
	require.NoError(t, err)

	ctx := context.Background()
	id := "task_" + uuid.NewString()
	require.NoError(t, s.Create(ctx, makeTask(id, "ctx_ttl", schema.TaskStateWorking, time.Now().UTC())))
	defer s.Delete(ctx, id)

	ttl, err := client.TTL(ctx, DefaultKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestPostgresTaskStore(t *testing.T) {
	dsn := os.Getenv("A2A_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("A2A_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresTaskStore(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	exerciseTaskStore(t, s)
}
