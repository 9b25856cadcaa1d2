package schema

import (
	"fmt"

	"github.com/gate4ai/a2a/shared"
)

// A2A specific error codes
const (
	ErrorCodeTaskNotFound                  = -32001
	ErrorCodeTaskNotCancelable             = -32002
	ErrorCodePushNotificationNotSupported  = -32003
	ErrorCodeUnsupportedOperation          = -32004
	ErrorCodeContentTypeNotSupported       = -32005
	ErrorCodeInvalidAgentResponse          = -32006
	ErrorCodeAgentNotFound                 = -32007
	ErrorCodeTaskNotContinuable            = -32008
	ErrorCodePushNotificationNotConfigured = -32009
)

// NewTaskNotFoundError indicates the specified task ID was not found.
func NewTaskNotFoundError(taskID string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeTaskNotFound,
		Message: fmt.Sprintf("Task not found: %s", taskID),
		Data:    map[string]string{"taskId": taskID},
	}
}

// NewTaskNotCancelableError indicates the task is in a state where it cannot
// be canceled.
func NewTaskNotCancelableError(taskID string, state TaskState) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeTaskNotCancelable,
		Message: fmt.Sprintf("Task '%s' cannot be canceled in state '%s'", taskID, state),
		Data:    map[string]string{"taskId": taskID, "state": string(state)},
	}
}

// NewTaskNotContinuableError indicates the task is in a state that does not
// accept follow-up messages.
func NewTaskNotContinuableError(taskID string, state TaskState) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeTaskNotContinuable,
		Message: fmt.Sprintf("Task '%s' cannot be continued from state '%s'", taskID, state),
		Data:    map[string]string{"taskId": taskID, "state": string(state)},
	}
}

// NewPushNotificationNotSupportedError indicates the agent does not support
// push notifications.
func NewPushNotificationNotSupportedError() *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodePushNotificationNotSupported,
		Message: "Push Notification is not supported",
	}
}

// NewPushNotificationNotConfiguredError indicates no webhook config exists
// for the task.
func NewPushNotificationNotConfiguredError(taskID string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodePushNotificationNotConfigured,
		Message: fmt.Sprintf("No push notification config for task '%s'", taskID),
		Data:    map[string]string{"taskId": taskID},
	}
}

// NewUnsupportedOperationError indicates the requested operation is not
// supported by the agent.
func NewUnsupportedOperationError(operation string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeUnsupportedOperation,
		Message: fmt.Sprintf("Operation '%s' is not supported", operation),
		Data:    map[string]string{"operation": operation},
	}
}

// NewContentTypeNotSupportedError indicates a mismatch in supported content
// types between client and agent.
func NewContentTypeNotSupportedError(contentType string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeContentTypeNotSupported,
		Message: fmt.Sprintf("Content type '%s' not supported", contentType),
		Data:    map[string]string{"contentType": contentType},
	}
}

// NewInvalidAgentResponseError indicates the runner produced output the
// server could not translate.
func NewInvalidAgentResponseError(detail string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeInvalidAgentResponse,
		Message: fmt.Sprintf("Invalid agent response: %s", detail),
	}
}

// NewAgentNotFoundError indicates no agent is registered under the name.
func NewAgentNotFoundError(agentName string) *shared.JSONRPCError {
	return &shared.JSONRPCError{
		Code:    ErrorCodeAgentNotFound,
		Message: fmt.Sprintf("Agent not found: %s", agentName),
		Data:    map[string]string{"agentName": agentName},
	}
}
