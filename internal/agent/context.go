package agent

import (
	"context"
	"time"

	"investai/internal/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// LoggerContextKey is the context key for storing the logger
	LoggerContextKey ContextKey = "logger"
)

// ExecutionContext tracks the progress of one run and routes its logging.
type ExecutionContext struct {
	RunID         string
	Logger        *logger.Logger
	StartTime     time.Time
	Round         int
	MaxRounds     int
	ToolCallCount int
}

func NewExecutionContext(runID string, log *logger.Logger, maxRounds int) *ExecutionContext {
	return &ExecutionContext{
		RunID:     runID,
		Logger:    log,
		StartTime: time.Now(),
		MaxRounds: maxRounds,
	}
}

// NextRound advances the round counter and logs it.
func (c *ExecutionContext) NextRound() int {
	c.Round++
	c.Logger.Round(c.Round, c.MaxRounds)
	return c.Round
}

// LogToolCall logs a tool call with its parameters
func (c *ExecutionContext) LogToolCall(toolName, params string) {
	c.ToolCallCount++
	c.Logger.ToolCall(toolName, params)
}

// LogToolResult logs a tool execution result
func (c *ExecutionContext) LogToolResult(toolName string, success bool, output string, duration time.Duration) {
	c.Logger.ToolResult(toolName, success, output, duration)
}

func (c *ExecutionContext) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// LoggerFromContext retrieves the logger stored in context
func LoggerFromContext(ctx context.Context) *logger.Logger {
	if log, ok := ctx.Value(LoggerContextKey).(*logger.Logger); ok {
		return log
	}
	return nil
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, log *logger.Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, log)
}
