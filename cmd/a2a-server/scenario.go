package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gate4ai/a2a/server/tasks"
)

// scenarioRunner is a demo Runner that reacts to keywords in the input,
// exercising every task state transition without a real model behind it.
// Unmatched input is echoed back.
type scenarioRunner struct{}

func (scenarioRunner) Run(ctx context.Context, _ interface{}, opts tasks.RunOptions) (*tasks.RunResult, error) {
	input := strings.ToLower(opts.Input)

	switch {
	case strings.Contains(input, "error_test"):
		return nil, errors.New("simulated agent error")

	case strings.Contains(input, "input_test"):
		return &tasks.RunResult{
			Output:        "Which city do you mean?",
			InputRequired: true,
		}, nil

	case strings.Contains(input, "cancel_test"):
		// Run until canceled.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Minute):
			return nil, errors.New("cancel_test was never canceled")
		}

	case strings.Contains(input, "stream_test"):
		output := "This is a streamed response."
		if opts.Stream {
			for _, word := range strings.SplitAfter(output, " ") {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(50 * time.Millisecond):
				}
				opts.OnToken(word)
			}
		}
		return &tasks.RunResult{Output: output}, nil

	default:
		out := "echo: " + opts.Input
		if opts.Stream {
			opts.OnToken(out)
		}
		return &tasks.RunResult{
			Output: out,
			Structured: map[string]interface{}{
				"inputLength": len(opts.Input),
			},
		}, nil
	}
}
