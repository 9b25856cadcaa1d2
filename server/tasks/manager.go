package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server/store"
)

// runHandle pairs a run's cancel function with its context so the outcome of
// a failed run can be classified as canceled vs failed.
type runHandle struct {
	cancel context.CancelFunc
	ctx    context.Context
}

// Manager owns the task state machine. All state transitions go through its
// public methods; each transition writes the store and emits exactly one
// status-update on the bus.
type Manager struct {
	store  store.TaskStore
	bus    *Bus
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]*runHandle
}

func NewManager(taskStore store.TaskStore, bus *Bus, logger *zap.Logger) *Manager {
	return &Manager{
		store:   taskStore,
		bus:     bus,
		logger:  logger.Named("task-manager"),
		handles: make(map[string]*runHandle),
	}
}

// Bus exposes the manager's event bus for subscribers (streams, webhooks).
func (m *Manager) Bus() *Bus {
	return m.bus
}

// CreateTask starts a new task in the working state with the supplied message
// as its entire history.
func (m *Manager) CreateTask(ctx context.Context, message schema.Message, contextID *string) (*schema.Task, error) {
	task := &schema.Task{
		ID:        schema.NewTaskID(),
		ContextID: schema.NewContextID(),
		Status: schema.TaskStatus{
			State:     schema.TaskStateWorking,
			Timestamp: time.Now().UTC(),
		},
		History: []schema.Message{message},
	}
	if contextID != nil && *contextID != "" {
		task.ContextID = *contextID
	}

	if err := m.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	m.logger.Info("Task created",
		zap.String("taskID", task.ID),
		zap.String("contextID", task.ContextID))
	m.emitStatus(task)
	return task, nil
}

// ContinueTask appends a follow-up message and moves the task back to
// working. Permitted only from input-required and completed.
func (m *Manager) ContinueTask(ctx context.Context, taskID string, message schema.Message) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}
	switch task.Status.State {
	case schema.TaskStateInputRequired, schema.TaskStateCompleted:
	default:
		return nil, schema.NewTaskNotContinuableError(taskID, task.Status.State)
	}

	task.History = append(task.History, message)
	task.Status = schema.TaskStatus{
		State:     schema.TaskStateWorking,
		Timestamp: time.Now().UTC(),
	}
	update := store.TaskUpdate{Status: &task.Status, History: task.History}
	if err := m.store.Update(ctx, taskID, update); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	m.logger.Info("Task continued", zap.String("taskID", taskID))
	m.emitStatus(task)
	return task, nil
}

// ExecuteTask runs the agent against the triggering message and drives the
// task to its next state. The run context is detached from any transport
// lifetime; only CancelTask (or ctx itself) cancels it. The cancellation
// handle is removed whatever the outcome.
func (m *Manager) ExecuteTask(ctx context.Context, taskID string, runner Runner, agent interface{}, message schema.Message, onToken func(string)) (*schema.Task, error) {
	runCtx, cancel := context.WithCancel(ctx)
	handle := &runHandle{cancel: cancel, ctx: runCtx}

	m.mu.Lock()
	if _, exists := m.handles[taskID]; exists {
		m.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("task %s already has a run in flight", taskID)
	}
	m.handles[taskID] = handle
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.handles, taskID)
		m.mu.Unlock()
		cancel()
	}()

	opts := RunOptions{
		Input:   message.TextContent(),
		Stream:  onToken != nil,
		OnToken: onToken,
	}
	result, runErr := runner.Run(runCtx, agent, opts)

	// Post-run store writes use the caller's context: runCtx may already be
	// canceled when we get here.
	if runErr != nil {
		if runCtx.Err() != nil {
			m.logger.Info("Run canceled",
				zap.String("taskID", taskID), zap.Error(runErr))
			if _, err := m.CancelTask(ctx, taskID); err != nil {
				// CancelTask already won the race; the task is terminal.
				m.logger.Debug("Task already terminal after canceled run",
					zap.String("taskID", taskID), zap.Error(err))
			}
		} else {
			m.logger.Warn("Run failed",
				zap.String("taskID", taskID), zap.Error(runErr))
			if _, err := m.FailTask(ctx, taskID, runErr.Error()); err != nil {
				return nil, err
			}
		}
		return m.GetTask(ctx, taskID)
	}

	if result == nil {
		if _, err := m.FailTask(ctx, taskID, "agent returned no result"); err != nil {
			return nil, err
		}
		return nil, schema.NewInvalidAgentResponseError("agent returned no result")
	}

	if result.InputRequired {
		if _, err := m.RequireInput(ctx, taskID, result.Output); err != nil {
			return nil, err
		}
		return m.GetTask(ctx, taskID)
	}

	if _, err := m.CompleteTask(ctx, taskID, result); err != nil {
		return nil, err
	}
	return m.GetTask(ctx, taskID)
}

// CompleteTask records the run result: artifacts for the outputs, an agent
// message in history, then the completed status. Events go out status first,
// artifacts after.
func (m *Manager) CompleteTask(ctx context.Context, taskID string, result *RunResult) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}

	var newArtifacts []schema.Artifact
	var agentParts []schema.Part
	if result.Output != "" {
		mimeType := "text/plain"
		newArtifacts = append(newArtifacts, schema.Artifact{
			ID:       schema.NewArtifactID(),
			Parts:    []schema.Part{schema.NewTextPart(result.Output)},
			MimeType: &mimeType,
		})
		agentParts = append(agentParts, schema.NewTextPart(result.Output))
	}
	if result.Structured != nil {
		mimeType := "application/json"
		dataPart := schema.NewDataPart(mimeType, result.Structured)
		newArtifacts = append(newArtifacts, schema.Artifact{
			ID:       schema.NewArtifactID(),
			Parts:    []schema.Part{dataPart},
			MimeType: &mimeType,
		})
		agentParts = append(agentParts, dataPart)
	}

	agentMessage := schema.Message{Role: schema.RoleAgent, Parts: agentParts}
	task.History = append(task.History, agentMessage)
	task.Artifacts = append(task.Artifacts, newArtifacts...)
	task.Status = schema.TaskStatus{
		State:     schema.TaskStateCompleted,
		Timestamp: time.Now().UTC(),
	}

	update := store.TaskUpdate{
		Status:    &task.Status,
		History:   task.History,
		Artifacts: task.Artifacts,
	}
	if err := m.store.Update(ctx, taskID, update); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	m.logger.Info("Task completed",
		zap.String("taskID", taskID),
		zap.Int("artifacts", len(newArtifacts)))
	m.emitStatus(task)
	for _, artifact := range newArtifacts {
		m.emitArtifact(task.ID, artifact)
	}
	return task, nil
}

// FailTask moves the task to failed; the status message carries the error.
func (m *Manager) FailTask(ctx context.Context, taskID string, errorMessage string) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}

	statusMessage := schema.Message{
		Role:  schema.RoleAgent,
		Parts: []schema.Part{schema.NewTextPart(errorMessage)},
	}
	task.Status = schema.TaskStatus{
		State:     schema.TaskStateFailed,
		Timestamp: time.Now().UTC(),
		Message:   &statusMessage,
	}
	if err := m.store.Update(ctx, taskID, store.TaskUpdate{Status: &task.Status}); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	m.logger.Warn("Task failed",
		zap.String("taskID", taskID),
		zap.String("reason", errorMessage))
	m.emitStatus(task)
	return task, nil
}

// CancelTask fires the run's cancellation signal (if any) and moves the task
// to canceled. Terminal tasks cannot be canceled.
func (m *Manager) CancelTask(ctx context.Context, taskID string) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}
	if task.Status.State.Terminal() {
		return nil, schema.NewTaskNotCancelableError(taskID, task.Status.State)
	}

	m.mu.Lock()
	handle := m.handles[taskID]
	m.mu.Unlock()
	if handle != nil {
		handle.cancel()
	}

	task.Status = schema.TaskStatus{
		State:     schema.TaskStateCanceled,
		Timestamp: time.Now().UTC(),
	}
	if err := m.store.Update(ctx, taskID, store.TaskUpdate{Status: &task.Status}); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	m.logger.Info("Task canceled", zap.String("taskID", taskID))
	m.emitStatus(task)
	return task, nil
}

// RequireInput parks the task in input-required; the status message carries
// the agent's prompt for the user.
func (m *Manager) RequireInput(ctx context.Context, taskID string, prompt string) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}

	status := schema.TaskStatus{
		State:     schema.TaskStateInputRequired,
		Timestamp: time.Now().UTC(),
	}
	if prompt != "" {
		statusMessage := schema.Message{
			Role:  schema.RoleAgent,
			Parts: []schema.Part{schema.NewTextPart(prompt)},
		}
		status.Message = &statusMessage
	}
	task.Status = status
	if err := m.store.Update(ctx, taskID, store.TaskUpdate{Status: &task.Status}); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	m.logger.Info("Task awaiting input", zap.String("taskID", taskID))
	m.emitStatus(task)
	return task, nil
}

// CancelRuns fires the cancellation signal of every run still in flight.
// Used on shutdown; the runs classify themselves as canceled on the way out.
func (m *Manager) CancelRuns() {
	m.mu.Lock()
	handles := make([]*runHandle, 0, len(m.handles))
	for _, handle := range m.handles {
		handles = append(handles, handle)
	}
	m.mu.Unlock()

	if len(handles) > 0 {
		m.logger.Info("Canceling in-flight runs", zap.Int("count", len(handles)))
	}
	for _, handle := range handles {
		handle.cancel()
	}
}

// GetTask returns the task or task-not-found.
func (m *Manager) GetTask(ctx context.Context, taskID string) (*schema.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, schema.NewTaskNotFoundError(taskID)
	}
	return task, nil
}

// ListTasks is a pass-through to the store's filter semantics.
func (m *Manager) ListTasks(ctx context.Context, filter store.ListFilter) ([]*schema.Task, error) {
	return m.store.List(ctx, filter)
}

func (m *Manager) emitStatus(task *schema.Task) {
	m.bus.Publish(Event{
		Type:   schema.EventTypeStatusUpdate,
		TaskID: task.ID,
		Payload: schema.TaskStatusUpdateEvent{
			Type:      schema.EventTypeStatusUpdate,
			TaskID:    task.ID,
			Status:    task.Status,
			Timestamp: time.Now().UTC(),
		},
	})
}

func (m *Manager) emitArtifact(taskID string, artifact schema.Artifact) {
	m.bus.Publish(Event{
		Type:   schema.EventTypeArtifactUpdate,
		TaskID: taskID,
		Payload: schema.TaskArtifactUpdateEvent{
			Type:      schema.EventTypeArtifactUpdate,
			TaskID:    taskID,
			Artifact:  artifact,
			Timestamp: time.Now().UTC(),
		},
	})
}
