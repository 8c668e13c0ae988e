package tool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"investai/internal/hook"
	"investai/internal/llm"
)

type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// EmptyOutputPlaceholder is returned when a tool produces no output.
// Chat APIs reject tool messages with empty content.
const EmptyOutputPlaceholder = "(Tool executed successfully with no output)"

// Executor runs the callable tools requested in one round. Every outcome,
// including provider errors and hook denials, comes back as a CallResult;
// nothing a tool does can abort the run.
type Executor struct {
	registry    *Registry
	mode        ExecutionMode
	hookManager *hook.Manager
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		mode:     ExecutionModeSequential,
	}
}

func (e *Executor) SetMode(mode ExecutionMode) {
	e.mode = mode
}

func (e *Executor) SetHookManager(manager *hook.Manager) {
	e.hookManager = manager
}

// Execute runs toolCalls and returns one result per call, in request order.
// It only fails when ctx is already done.
func (e *Executor) Execute(ctx context.Context, runID string, toolCalls []*llm.ToolCall) ([]*CallResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.mode == ExecutionModeParallel && len(toolCalls) > 1 {
		return e.executeParallel(ctx, runID, toolCalls), nil
	}
	return e.executeSequential(ctx, runID, toolCalls), nil
}

func (e *Executor) executeSequential(ctx context.Context, runID string, toolCalls []*llm.ToolCall) []*CallResult {
	results := make([]*CallResult, len(toolCalls))
	for i, tc := range toolCalls {
		results[i] = e.executeOne(ctx, runID, tc)
	}
	return results
}

func (e *Executor) executeParallel(ctx context.Context, runID string, toolCalls []*llm.ToolCall) []*CallResult {
	results := make([]*CallResult, len(toolCalls))

	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(idx int, call *llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeOne(ctx, runID, call)
		}(i, tc)
	}
	wg.Wait()

	return results
}

func (e *Executor) executeOne(ctx context.Context, runID string, tc *llm.ToolCall) *CallResult {
	call := &CallResult{
		ToolName:  tc.Function.Name,
		CallID:    tc.ID,
		Params:    []byte(tc.Function.Arguments),
		StartTime: time.Now(),
	}
	finish := func(result *Result) *CallResult {
		call.Result = result
		call.EndTime = time.Now()
		return call
	}

	t, err := e.registry.Get(tc.Function.Name)
	if err != nil {
		return finish(Failure(err))
	}
	if e.registry.IsTerminal(t.Name()) {
		return finish(&Result{Success: false, Error: fmt.Sprintf("tool %s ends the run and is never executed", t.Name())})
	}
	callable, ok := t.(Callable)
	if !ok {
		return finish(&Result{Success: false, Error: fmt.Sprintf("tool %s cannot be executed", t.Name())})
	}

	if e.hookManager.HasHandlers(hook.BeforeToolExecution) {
		event := hook.NewEvent(hook.BeforeToolExecution, runID).
			ForTool(tc.Function.Name).
			Set(hook.KeyParams, tc.Function.Arguments)

		feedback, err := e.hookManager.Trigger(ctx, event)
		if err != nil {
			return finish(&Result{Success: false, Error: fmt.Sprintf("hook error: %v", err)})
		}
		if !feedback.Allow {
			denyMsg := fmt.Sprintf("Tool execution was DENIED by user. Reason: %s. Answer with the information you already have.", feedback.Message)
			return finish(&Result{Success: false, Output: denyMsg, Error: denyMsg})
		}
	}

	result, err := callable.Execute(ctx, call.Params)
	if err != nil {
		result = Failure(err)
	}
	if result == nil {
		result = &Result{Success: true}
	}
	if result.Success && result.Output == "" {
		result.Output = EmptyOutputPlaceholder
	}
	finish(result)

	if e.hookManager.HasHandlers(hook.AfterToolExecution) {
		e.hookManager.Notify(ctx, hook.NewEvent(hook.AfterToolExecution, runID).
			ForTool(tc.Function.Name).
			Set(hook.KeyParams, tc.Function.Arguments).
			Set(hook.KeyResult, result).
			Set(hook.KeyDuration, call.Duration()))
	}

	return call
}
