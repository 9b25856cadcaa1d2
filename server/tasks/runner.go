package tasks

import "context"

// RunOptions carries the per-run inputs handed to a Runner.
type RunOptions struct {
	// Input is the newline-joined text content of the triggering message.
	Input string
	// Stream indicates the caller wants incremental tokens.
	Stream bool
	// OnToken receives each output token when Stream is set. The Runner must
	// finish emitting tokens before returning.
	OnToken func(token string)
}

// ToolCall records one tool invocation made during a run.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
}

// Usage reports token accounting for a run.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// RunResult is what a Runner produces on success.
type RunResult struct {
	// Output is the agent's text answer.
	Output string
	// Structured is an optional machine-readable result.
	Structured map[string]interface{}
	// Usage is optional token accounting.
	Usage *Usage
	// ToolCalls lists tool invocations made during the run.
	ToolCalls []ToolCall
	// InputRequired signals the agent needs another user turn before it can
	// finish; Output then carries the prompt for the user.
	InputRequired bool
}

// Runner executes an agent against an input. Implementations wrap the
// underlying LLM runtime; the engine never looks inside the agent value.
// A Runner should watch ctx and return promptly once it is canceled.
type Runner interface {
	Run(ctx context.Context, agent interface{}, opts RunOptions) (*RunResult, error)
}
