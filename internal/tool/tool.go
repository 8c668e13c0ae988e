package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool is the description every registered tool shares. Behavior is carried
// by exactly one of the two variants below, checked when the registry is
// sealed and again at dispatch.
type Tool interface {
	// Name returns the unique identifier the model calls the tool by
	Name() string

	// Description tells the model when the tool is useful
	Description() string

	// Parameters returns the JSON schema for the tool's arguments
	Parameters() map[string]any
}

// Callable is a tool the loop executes.
type Callable interface {
	Tool
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Terminal is a tool with no behavior. Calling it ends the run, its
// arguments are the final answer.
type Terminal interface {
	Tool
	Terminal()
}

type Result struct {
	Success bool
	Output  string
	Error   string
	Data    map[string]any
}

// Content is the text sent back to the model as the tool message.
func (r *Result) Content() string {
	if r.Success {
		return r.Output
	}
	if r.Output != "" && r.Output != r.Error {
		return "Error: " + r.Error + "\n" + r.Output
	}
	return "Error: " + r.Error
}

type CallResult struct {
	ToolName  string
	CallID    string
	Params    json.RawMessage
	Result    *Result
	StartTime time.Time
	EndTime   time.Time
}

func (c *CallResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

// JSONResult marshals v as the successful output of a tool.
func JSONResult(v any) (*Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Output: string(data)}, nil
}

// Failure reports a recoverable tool error to the model.
func Failure(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}
