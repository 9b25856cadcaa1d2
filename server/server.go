// Package server implements the A2A protocol server: JSON-RPC method
// dispatch, the streaming generator, and agent card exposure.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server/store"
	"github.com/gate4ai/a2a/server/tasks"
	"github.com/gate4ai/a2a/shared"
)

// Method names of the A2A surface.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
	MethodTasksList     = "tasks/list"
	MethodPushCreate    = "tasks/pushNotification/create"
	MethodPushGet       = "tasks/pushNotification/get"
	MethodPushList      = "tasks/pushNotification/list"
	MethodPushDelete    = "tasks/pushNotification/delete"
	MethodExtendedCard  = "agent/extendedCard"
)

// ExtendedCardGenerator produces the extended-card blob for an agent.
type ExtendedCardGenerator func(agentName string) (map[string]interface{}, error)

// A2AServer routes JSON-RPC methods onto the task engine.
type A2AServer struct {
	manager      *tasks.Manager
	runner       tasks.Runner
	pushConfigs  store.PushConfigStore
	agents       []*Agent
	agentsByName map[string]*Agent
	extendedCard ExtendedCardGenerator
	logger       *zap.Logger

	secretMu      sync.RWMutex
	signingSecret []byte
}

type ServerOption func(*A2AServer)

// WithAgent registers an agent. The first registered agent is the default.
func WithAgent(agent *Agent) ServerOption {
	return func(s *A2AServer) {
		s.agents = append(s.agents, agent)
		s.agentsByName[agent.Name] = agent
	}
}

// WithPushConfigStore enables the push-notification methods.
func WithPushConfigStore(configs store.PushConfigStore) ServerOption {
	return func(s *A2AServer) { s.pushConfigs = configs }
}

// WithSigningSecret enables agent card signing.
func WithSigningSecret(secret []byte) ServerOption {
	return func(s *A2AServer) { s.signingSecret = secret }
}

// WithExtendedCardGenerator enables agent/extendedCard.
func WithExtendedCardGenerator(gen ExtendedCardGenerator) ServerOption {
	return func(s *A2AServer) { s.extendedCard = gen }
}

func NewA2AServer(manager *tasks.Manager, runner tasks.Runner, logger *zap.Logger, opts ...ServerOption) *A2AServer {
	s := &A2AServer{
		manager:      manager,
		runner:       runner,
		agentsByName: make(map[string]*Agent),
		logger:       logger.Named("a2a-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSigningSecret replaces the card signing secret at runtime. An empty
// secret disables signing. Used by the config hot-reload path.
func (s *A2AServer) SetSigningSecret(secret []byte) {
	s.secretMu.Lock()
	s.signingSecret = secret
	s.secretMu.Unlock()
}

func (s *A2AServer) signingKey() []byte {
	s.secretMu.RLock()
	defer s.secretMu.RUnlock()
	return s.signingSecret
}

// Manager exposes the underlying task engine.
func (s *A2AServer) Manager() *tasks.Manager {
	return s.manager
}

// Handle processes one unary JSON-RPC request and returns the response
// envelope. Protocol and domain failures become error envelopes; Handle
// itself never fails.
func (s *A2AServer) Handle(ctx context.Context, msg *shared.Message) *shared.JSONRPCResponse {
	if rpcErr := msg.Validate(); rpcErr != nil {
		return errorResponse(msg, rpcErr)
	}

	result, err := s.dispatch(ctx, msg)
	if err != nil {
		return errorResponse(msg, toJSONRPCError(err))
	}
	return &shared.JSONRPCResponse{
		JSONRPC: shared.JSONRPCVersion,
		ID:      msg.ID,
		Result:  result,
	}
}

func (s *A2AServer) dispatch(ctx context.Context, msg *shared.Message) (interface{}, error) {
	method := *msg.Method
	s.logger.Debug("Dispatching method", zap.String("method", method))

	switch method {
	case MethodMessageSend:
		return s.handleMessageSend(ctx, msg, nil)
	case MethodMessageStream:
		// Streaming only; HandleStream serves this method.
		return nil, schema.NewUnsupportedOperationError(MethodMessageStream)
	case MethodTasksGet:
		return s.handleTasksGet(ctx, msg)
	case MethodTasksCancel:
		return s.handleTasksCancel(ctx, msg)
	case MethodTasksList:
		return s.handleTasksList(ctx, msg)
	case MethodPushCreate:
		return s.handlePushCreate(ctx, msg)
	case MethodPushGet:
		return s.handlePushGet(ctx, msg)
	case MethodPushList:
		return s.handlePushList(ctx, msg)
	case MethodPushDelete:
		return s.handlePushDelete(ctx, msg)
	case MethodExtendedCard:
		return s.handleExtendedCard(msg)
	default:
		return nil, &shared.JSONRPCError{
			Code:    shared.JSONRPCErrorMethodNotFound,
			Message: "Method not found: " + method,
		}
	}
}

func (s *A2AServer) handleMessageSend(ctx context.Context, msg *shared.Message, onToken func(string)) (*schema.Task, error) {
	var params schema.MessageSendParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.Message.Role == "" || len(params.Message.Parts) == 0 {
		return nil, invalidParams("message with role and non-empty parts is required")
	}

	agent, rpcErr := s.findAgent(params.AgentName)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var task *schema.Task
	var err error
	if params.Message.TaskID != nil && *params.Message.TaskID != "" {
		task, err = s.manager.ContinueTask(ctx, *params.Message.TaskID, params.Message)
	} else {
		task, err = s.manager.CreateTask(ctx, params.Message, params.Message.ContextID)
	}
	if err != nil {
		return nil, err
	}

	if params.Configuration != nil && params.Configuration.PushNotificationConfig != nil {
		if _, err := s.registerPushConfig(ctx, task.ID, params.Configuration.PushNotificationConfig); err != nil {
			return nil, err
		}
	}

	// The run outlives the request's transport; only tasks/cancel stops it.
	done, err := s.manager.ExecuteTask(context.Background(), task.ID, s.runner, agent.Handle, params.Message, onToken)
	if err != nil {
		return nil, err
	}

	if params.Configuration != nil && params.Configuration.HistoryLength != nil {
		trimHistory(done, *params.Configuration.HistoryLength)
	}
	return done, nil
}

func (s *A2AServer) handleTasksGet(ctx context.Context, msg *shared.Message) (*schema.Task, error) {
	var params schema.TaskQueryParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, invalidParams("id is required")
	}
	task, err := s.manager.GetTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if params.HistoryLength != nil {
		trimHistory(task, *params.HistoryLength)
	}
	return task, nil
}

func (s *A2AServer) handleTasksCancel(ctx context.Context, msg *shared.Message) (*schema.Task, error) {
	var params schema.TaskIDParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, invalidParams("id is required")
	}
	return s.manager.CancelTask(ctx, params.ID)
}

func (s *A2AServer) handleTasksList(ctx context.Context, msg *shared.Message) (*schema.ListTasksResult, error) {
	var params schema.ListTasksParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	tasksFound, err := s.manager.ListTasks(ctx, store.ListFilter{
		ContextID: params.ContextID,
		State:     params.State,
		Offset:    params.Offset,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, err
	}
	result := &schema.ListTasksResult{Tasks: make([]schema.Task, 0, len(tasksFound))}
	for _, task := range tasksFound {
		result.Tasks = append(result.Tasks, *task)
	}
	return result, nil
}

func (s *A2AServer) handlePushCreate(ctx context.Context, msg *shared.Message) (*schema.PushNotificationConfig, error) {
	if s.pushConfigs == nil {
		return nil, schema.NewPushNotificationNotSupportedError()
	}
	var params schema.PushNotificationCreateParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.TaskID == "" || params.Config.URL == "" {
		return nil, invalidParams("taskId and config.webhookUrl are required")
	}
	if _, err := s.manager.GetTask(ctx, params.TaskID); err != nil {
		return nil, err
	}
	return s.registerPushConfig(ctx, params.TaskID, &params.Config)
}

func (s *A2AServer) registerPushConfig(ctx context.Context, taskID string, config *schema.PushNotificationConfig) (*schema.PushNotificationConfig, error) {
	if s.pushConfigs == nil {
		return nil, schema.NewPushNotificationNotSupportedError()
	}
	stored := config.Clone()
	if stored.ID == "" {
		stored.ID = schema.NewPushConfigID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := s.pushConfigs.Create(ctx, taskID, stored); err != nil {
		return nil, err
	}
	s.logger.Info("Push notification config registered",
		zap.String("taskID", taskID),
		zap.String("configID", stored.ID))
	return stored, nil
}

func (s *A2AServer) handlePushGet(ctx context.Context, msg *shared.Message) (*schema.PushNotificationConfig, error) {
	if s.pushConfigs == nil {
		return nil, schema.NewPushNotificationNotSupportedError()
	}
	var params schema.PushNotificationGetParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.TaskID == "" || params.ConfigID == "" {
		return nil, invalidParams("taskId and configId are required")
	}
	// A missing config is not an error here; the result is null.
	return s.pushConfigs.Get(ctx, params.TaskID, params.ConfigID)
}

func (s *A2AServer) handlePushList(ctx context.Context, msg *shared.Message) ([]*schema.PushNotificationConfig, error) {
	if s.pushConfigs == nil {
		return nil, schema.NewPushNotificationNotSupportedError()
	}
	var params schema.PushNotificationListParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.TaskID == "" {
		return nil, invalidParams("taskId is required")
	}
	return s.pushConfigs.List(ctx, params.TaskID)
}

func (s *A2AServer) handlePushDelete(ctx context.Context, msg *shared.Message) (*schema.DeleteResult, error) {
	if s.pushConfigs == nil {
		return nil, schema.NewPushNotificationNotSupportedError()
	}
	var params schema.PushNotificationGetParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	if params.TaskID == "" || params.ConfigID == "" {
		return nil, invalidParams("taskId and configId are required")
	}
	removed, err := s.pushConfigs.Delete(ctx, params.TaskID, params.ConfigID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, schema.NewPushNotificationNotConfiguredError(params.TaskID)
	}
	return &schema.DeleteResult{Success: true}, nil
}

func (s *A2AServer) handleExtendedCard(msg *shared.Message) (map[string]interface{}, error) {
	if s.extendedCard == nil {
		return nil, schema.NewUnsupportedOperationError(MethodExtendedCard)
	}
	var params schema.ExtendedCardParams
	if err := decodeParams(msg, &params); err != nil {
		return nil, err
	}
	agent, rpcErr := s.findAgent(params.AgentName)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.extendedCard(agent.Name)
}

// trimHistory keeps only the last n history entries. Negative n is ignored.
func trimHistory(task *schema.Task, n int) {
	if n < 0 || len(task.History) <= n {
		return
	}
	task.History = task.History[len(task.History)-n:]
}

func decodeParams(msg *shared.Message, out interface{}) error {
	if msg.Params == nil {
		return invalidParams("params are required")
	}
	if err := json.Unmarshal(*msg.Params, out); err != nil {
		return invalidParams("failed to decode params: " + err.Error())
	}
	return nil
}

func invalidParams(detail string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    shared.JSONRPCErrorInvalidParams,
		Message: "Invalid params: " + detail,
	}
}

// toJSONRPCError maps any error to a JSON-RPC error: domain errors pass
// through 1:1, everything else becomes an internal error.
func toJSONRPCError(err error) *shared.JSONRPCError {
	var rpcErr *shared.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &shared.JSONRPCError{
		Code:    shared.JSONRPCErrorInternal,
		Message: "Internal error: " + err.Error(),
	}
}

func errorResponse(msg *shared.Message, rpcErr *shared.JSONRPCError) *shared.JSONRPCResponse {
	var id *interface{}
	if msg != nil {
		id = msg.ID
	}
	return &shared.JSONRPCResponse{
		JSONRPC: shared.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}
