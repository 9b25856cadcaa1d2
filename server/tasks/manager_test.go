package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server/store"
	"github.com/gate4ai/a2a/shared"
)

type runnerFunc func(ctx context.Context, agent interface{}, opts RunOptions) (*RunResult, error)

func (f runnerFunc) Run(ctx context.Context, agent interface{}, opts RunOptions) (*RunResult, error) {
	return f(ctx, agent, opts)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) types() []string {
	var out []string
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

func newTestManager() (*Manager, *eventRecorder) {
	bus := NewBus(zap.NewNop())
	recorder := &eventRecorder{}
	bus.Subscribe(recorder.listen)
	return NewManager(store.NewMemoryTaskStore(), bus, zap.NewNop()), recorder
}

func userMessage(text string) schema.Message {
	return schema.Message{Role: schema.RoleUser, Parts: []schema.Part{schema.NewTextPart(text)}}
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	m, recorder := newTestManager()

	task, err := m.CreateTask(ctx, userMessage("Hello"), nil)
	require.NoError(t, err)
	assert.Contains(t, task.ID, "task_")
	assert.Contains(t, task.ContextID, "ctx_")
	assert.Equal(t, schema.TaskStateWorking, task.Status.State)
	require.Len(t, task.History, 1)

	events := recorder.all()
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventTypeStatusUpdate, events[0].Type)
	assert.Equal(t, task.ID, events[0].TaskID)

	contextID := "ctx_custom"
	task2, err := m.CreateTask(ctx, userMessage("Hello"), &contextID)
	require.NoError(t, err)
	assert.Equal(t, "ctx_custom", task2.ContextID)
}

func TestExecuteTaskCompletes(t *testing.T) {
	ctx := context.Background()
	m, recorder := newTestManager()

	runner := runnerFunc(func(_ context.Context, _ interface{}, opts RunOptions) (*RunResult, error) {
		assert.Equal(t, "Hello", opts.Input)
		assert.False(t, opts.Stream)
		return &RunResult{Output: "world"}, nil
	})

	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateCompleted, done.Status.State)
	require.Len(t, done.History, 2)
	assert.Equal(t, schema.RoleAgent, done.History[1].Role)
	require.Len(t, done.Artifacts, 1)
	assert.Equal(t, "text/plain", *done.Artifacts[0].MimeType)
	assert.Equal(t, "world", *done.Artifacts[0].Parts[0].Text)

	assert.Equal(t, []string{
		schema.EventTypeStatusUpdate, // working
		schema.EventTypeStatusUpdate, // completed
		schema.EventTypeArtifactUpdate,
	}, recorder.types())
}

func TestExecuteTaskStructuredOutput(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return &RunResult{Output: "x", Structured: map[string]interface{}{"total": 42}}, nil
	})

	msg := userMessage("compute")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	require.NoError(t, err)
	require.Len(t, done.Artifacts, 2)
	assert.Equal(t, "text/plain", *done.Artifacts[0].MimeType)
	assert.Equal(t, "application/json", *done.Artifacts[1].MimeType)

	agentMsg := done.History[len(done.History)-1]
	require.Len(t, agentMsg.Parts, 2)
	assert.Equal(t, schema.PartTypeText, agentMsg.Parts[0].Type)
	assert.Equal(t, schema.PartTypeData, agentMsg.Parts[1].Type)
}

func TestExecuteTaskRunnerFailure(t *testing.T) {
	ctx := context.Background()
	m, recorder := newTestManager()

	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return nil, errors.New("model exploded")
	})

	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateFailed, done.Status.State)
	require.NotNil(t, done.Status.Message)
	assert.Equal(t, "model exploded", *done.Status.Message.Parts[0].Text)

	assert.Equal(t, []string{
		schema.EventTypeStatusUpdate,
		schema.EventTypeStatusUpdate,
	}, recorder.types())
}

func TestExecuteTaskCanceledDuringRun(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	started := make(chan struct{})
	runner := runnerFunc(func(runCtx context.Context, _ interface{}, _ RunOptions) (*RunResult, error) {
		close(started)
		<-runCtx.Done()
		return nil, runCtx.Err()
	})

	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	type result struct {
		task *schema.Task
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
		resultCh <- result{done, err}
	}()

	<-started
	canceled, err := m.CancelTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateCanceled, canceled.Status.State)

	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, schema.TaskStateCanceled, res.task.Status.State)

	// Handle must be gone after the run.
	m.mu.Lock()
	assert.Empty(t, m.handles)
	m.mu.Unlock()
}

func TestExecuteTaskNilResult(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return nil, nil
	})

	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	_, err = m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	var rpcErr *shared.JSONRPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, schema.ErrorCodeInvalidAgentResponse, rpcErr.Code)

	failed, err := m.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateFailed, failed.Status.State)
}

func TestCancelRunsFiresInFlightHandles(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	started := make(chan struct{})
	runner := runnerFunc(func(runCtx context.Context, _ interface{}, _ RunOptions) (*RunResult, error) {
		close(started)
		<-runCtx.Done()
		return nil, runCtx.Err()
	})

	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	type result struct {
		task *schema.Task
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
		resultCh <- result{done, err}
	}()

	<-started
	m.CancelRuns()

	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, schema.TaskStateCanceled, res.task.Status.State)
}

func TestExecuteTaskInputRequired(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return &RunResult{Output: "which city?", InputRequired: true}, nil
	})

	msg := userMessage("weather please")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateInputRequired, done.Status.State)
	require.NotNil(t, done.Status.Message)
	assert.Equal(t, "which city?", *done.Status.Message.Parts[0].Text)
}

func TestExecuteTaskStreamsTokens(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	runner := runnerFunc(func(_ context.Context, _ interface{}, opts RunOptions) (*RunResult, error) {
		require.True(t, opts.Stream)
		opts.OnToken("He")
		opts.OnToken("llo")
		return &RunResult{Output: "Hello"}, nil
	})

	var tokens []string
	msg := userMessage("Hello")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)

	done, err := m.ExecuteTask(ctx, task.ID, runner, nil, msg, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateCompleted, done.Status.State)
	assert.Equal(t, []string{"He", "llo"}, tokens)
}

func TestContinueTaskRules(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	var jsonRPCErr *shared.JSONRPCError

	// working: rejected
	task, err := m.CreateTask(ctx, userMessage("Hello"), nil)
	require.NoError(t, err)
	_, err = m.ContinueTask(ctx, task.ID, userMessage("again"))
	require.Error(t, err)
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotContinuable, jsonRPCErr.Code)

	// completed: accepted, history grows, context unchanged
	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return &RunResult{Output: "done"}, nil
	})
	_, err = m.ExecuteTask(ctx, task.ID, runner, nil, userMessage("Hello"), nil)
	require.NoError(t, err)

	continued, err := m.ContinueTask(ctx, task.ID, userMessage("more"))
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateWorking, continued.Status.State)
	assert.Equal(t, task.ContextID, continued.ContextID)
	assert.Len(t, continued.History, 3)

	// canceled: rejected
	canceled, err := m.CreateTask(ctx, userMessage("Hello"), nil)
	require.NoError(t, err)
	_, err = m.CancelTask(ctx, canceled.ID)
	require.NoError(t, err)
	_, err = m.ContinueTask(ctx, canceled.ID, userMessage("again"))
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotContinuable, jsonRPCErr.Code)

	// failed: rejected
	failing := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return nil, errors.New("boom")
	})
	failed, err := m.CreateTask(ctx, userMessage("Hello"), nil)
	require.NoError(t, err)
	_, err = m.ExecuteTask(ctx, failed.ID, failing, nil, userMessage("Hello"), nil)
	require.NoError(t, err)
	_, err = m.ContinueTask(ctx, failed.ID, userMessage("again"))
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotContinuable, jsonRPCErr.Code)

	// unknown: not found
	_, err = m.ContinueTask(ctx, "task_nope", userMessage("again"))
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotFound, jsonRPCErr.Code)
}

func TestContinueFromInputRequired(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	runner := runnerFunc(func(context.Context, interface{}, RunOptions) (*RunResult, error) {
		return &RunResult{Output: "which city?", InputRequired: true}, nil
	})

	msg := userMessage("weather")
	task, err := m.CreateTask(ctx, msg, nil)
	require.NoError(t, err)
	_, err = m.ExecuteTask(ctx, task.ID, runner, nil, msg, nil)
	require.NoError(t, err)

	continued, err := m.ContinueTask(ctx, task.ID, userMessage("Paris"))
	require.NoError(t, err)
	assert.Equal(t, schema.TaskStateWorking, continued.Status.State)
}

func TestCancelTaskErrors(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	var jsonRPCErr *shared.JSONRPCError

	_, err := m.CancelTask(ctx, "task_nope")
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotFound, jsonRPCErr.Code)

	task, err := m.CreateTask(ctx, userMessage("Hello"), nil)
	require.NoError(t, err)
	_, err = m.CancelTask(ctx, task.ID)
	require.NoError(t, err)

	_, err = m.CancelTask(ctx, task.ID)
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotCancelable, jsonRPCErr.Code)
}

func TestGetAndListTasks(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	var jsonRPCErr *shared.JSONRPCError

	_, err := m.GetTask(ctx, "task_nope")
	require.ErrorAs(t, err, &jsonRPCErr)
	assert.Equal(t, schema.ErrorCodeTaskNotFound, jsonRPCErr.Code)

	contextID := "ctx_list"
	_, err = m.CreateTask(ctx, userMessage("a"), &contextID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := m.CreateTask(ctx, userMessage("b"), &contextID)
	require.NoError(t, err)

	tasks, err := m.ListTasks(ctx, store.ListFilter{ContextID: &contextID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	recorder := &eventRecorder{}
	unsub := bus.Subscribe(recorder.listen)

	bus.Publish(Event{Type: schema.EventTypeStatusUpdate, TaskID: "task_1"})
	unsub()
	bus.Publish(Event{Type: schema.EventTypeStatusUpdate, TaskID: "task_2"})

	assert.Len(t, recorder.all(), 1)
}
