package schema

// MessageSendConfiguration carries optional tuning for a message/send or
// message/stream call.
type MessageSendConfiguration struct {
	// Register this webhook before the run starts.
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
	// Limit the history returned with the terminal task.
	HistoryLength *int `json:"historyLength,omitempty"`
}

// MessageSendParams are the parameters for `message/send` and
// `message/stream`.
type MessageSendParams struct {
	// The message to deliver. (Required)
	Message Message `json:"message"`
	// Target agent for multi-agent servers. Defaults to the first registered
	// agent.
	AgentName *string `json:"agentName,omitempty"`
	// Optional call configuration.
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
}

// TaskQueryParams are the parameters for `tasks/get`.
type TaskQueryParams struct {
	// The task identifier. (Required)
	ID string `json:"id"`
	// Trim the returned history to its last N messages.
	HistoryLength *int `json:"historyLength,omitempty"`
}

// TaskIDParams are the parameters for `tasks/cancel`.
type TaskIDParams struct {
	// The task identifier. (Required)
	ID string `json:"id"`
}

// ListTasksParams are the parameters for `tasks/list`. Filters apply before
// pagination.
type ListTasksParams struct {
	// Only tasks in this context.
	ContextID *string `json:"contextId,omitempty"`
	// Only tasks in this state.
	State *TaskState `json:"state,omitempty"`
	// Skip the first N matches.
	Offset int `json:"offset,omitempty"`
	// Return at most N tasks. Zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// ListTasksResult is the result envelope for `tasks/list`.
type ListTasksResult struct {
	Tasks []Task `json:"tasks"`
}

// PushNotificationCreateParams are the parameters for
// `tasks/pushNotification/create`.
type PushNotificationCreateParams struct {
	// The task identifier. (Required)
	TaskID string `json:"taskId"`
	// The webhook config to register; the server assigns its id. (Required)
	Config PushNotificationConfig `json:"config"`
}

// PushNotificationGetParams are the parameters for
// `tasks/pushNotification/get` and `tasks/pushNotification/delete`.
type PushNotificationGetParams struct {
	// The task identifier. (Required)
	TaskID string `json:"taskId"`
	// The config identifier. (Required)
	ConfigID string `json:"configId"`
}

// PushNotificationListParams are the parameters for
// `tasks/pushNotification/list`.
type PushNotificationListParams struct {
	// The task identifier. (Required)
	TaskID string `json:"taskId"`
}

// DeleteResult is the result envelope for `tasks/pushNotification/delete`.
type DeleteResult struct {
	Success bool `json:"success"`
}

// ExtendedCardParams are the parameters for `agent/extendedCard`.
type ExtendedCardParams struct {
	// Target agent for multi-agent servers.
	AgentName *string `json:"agentName,omitempty"`
}
