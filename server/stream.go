package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server/tasks"
	"github.com/gate4ai/a2a/shared"
)

// eventQueue is a per-request FIFO with a single-consumer wake signal.
// Bus listener callbacks and the OnToken callback push; the stream consumer
// drains.
type eventQueue struct {
	mu    sync.Mutex
	items []interface{}
	wake  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(item interface{}) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// StreamSender delivers one serialized event frame to the client. A non-nil
// error means the transport is gone and the stream should stop.
type StreamSender func(payload json.RawMessage) error

// HandleStream serves a `message/stream` request: it creates or continues
// the task, starts the run, and forwards task events to the sender until the
// run finishes and the queue is drained.
//
// A sender failure (client disconnect) stops the drain but never cancels the
// run; only tasks/cancel does that. Protocol failures are reported as a
// single synthetic status-update(failed) event with an empty task id.
func (s *A2AServer) HandleStream(ctx context.Context, msg *shared.Message, send StreamSender) error {
	if rpcErr := msg.Validate(); rpcErr != nil {
		return s.streamFail(send, rpcErr)
	}
	if *msg.Method != MethodMessageStream {
		result, err := s.dispatch(ctx, msg)
		if err != nil {
			return s.streamFail(send, toJSONRPCError(err))
		}
		// Unary methods on the SSE path get their result as a single frame.
		frame, err := json.Marshal(result)
		if err != nil {
			return s.streamFail(send, shared.NewJSONRPCError(err))
		}
		return send(frame)
	}

	var params schema.MessageSendParams
	if err := decodeParams(msg, &params); err != nil {
		return s.streamFail(send, toJSONRPCError(err))
	}
	if params.Message.Role == "" || len(params.Message.Parts) == 0 {
		return s.streamFail(send, invalidParams("message with role and non-empty parts is required"))
	}
	agent, rpcErr := s.findAgent(params.AgentName)
	if rpcErr != nil {
		return s.streamFail(send, rpcErr)
	}

	var task *schema.Task
	var err error
	if params.Message.TaskID != nil && *params.Message.TaskID != "" {
		task, err = s.manager.ContinueTask(ctx, *params.Message.TaskID, params.Message)
	} else {
		task, err = s.manager.CreateTask(ctx, params.Message, params.Message.ContextID)
	}
	if err != nil {
		return s.streamFail(send, toJSONRPCError(err))
	}
	if params.Configuration != nil && params.Configuration.PushNotificationConfig != nil {
		if _, err := s.registerPushConfig(ctx, task.ID, params.Configuration.PushNotificationConfig); err != nil {
			return s.streamFail(send, toJSONRPCError(err))
		}
	}

	queue := newEventQueue()
	taskID := task.ID

	unsubscribe := s.manager.Bus().Subscribe(func(event tasks.Event) {
		if event.TaskID == taskID {
			queue.push(event.Payload)
		}
	})
	defer unsubscribe()

	// Synthetic initial event reflecting the post-create/continue status.
	queue.push(schema.TaskStatusUpdateEvent{
		Type:      schema.EventTypeStatusUpdate,
		TaskID:    taskID,
		Status:    task.Status,
		Timestamp: time.Now().UTC(),
	})

	onToken := func(token string) {
		queue.push(schema.TokenEvent{
			Type:      schema.EventTypeToken,
			TaskID:    taskID,
			Token:     token,
			Timestamp: time.Now().UTC(),
		})
	}

	execDone := make(chan struct{})
	go func() {
		defer close(execDone)
		// Detached from the request context: a stream disconnect is
		// observation loss, not cancellation.
		if _, err := s.manager.ExecuteTask(context.Background(), taskID, s.runner, agent.Handle, params.Message, onToken); err != nil {
			s.logger.Warn("Streamed execution failed",
				zap.String("taskID", taskID), zap.Error(err))
		}
	}()

	for {
		for {
			item, ok := queue.pop()
			if !ok {
				break
			}
			frame, err := json.Marshal(item)
			if err != nil {
				s.logger.Error("Failed to marshal stream event",
					zap.String("taskID", taskID), zap.Error(err))
				continue
			}
			if err := send(frame); err != nil {
				s.logger.Debug("Stream consumer gone",
					zap.String("taskID", taskID), zap.Error(err))
				return err
			}
		}

		select {
		case <-queue.wake:
		case <-execDone:
			// The run emits all its events before returning; one final
			// drain delivers anything still queued.
			for {
				item, ok := queue.pop()
				if !ok {
					return nil
				}
				frame, err := json.Marshal(item)
				if err != nil {
					continue
				}
				if err := send(frame); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// streamFail emits the one synthetic failed status-update the streaming
// protocol defines for request-level failures.
func (s *A2AServer) streamFail(send StreamSender, rpcErr *shared.JSONRPCError) error {
	details := map[string]interface{}{
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}
	event := schema.TaskStatusUpdateEvent{
		Type:   schema.EventTypeStatusUpdate,
		TaskID: "",
		Status: schema.TaskStatus{
			State:        schema.TaskStateFailed,
			Timestamp:    time.Now().UTC(),
			ErrorDetails: &details,
		},
		Timestamp: time.Now().UTC(),
	}
	frame, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return send(frame)
}
