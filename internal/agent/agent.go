package agent

import (
	"context"
	"time"

	"investai/internal/llm"
	"investai/internal/logger"
	"investai/internal/tool"
	"investai/internal/tool/builtin"
)

// DefaultSystemPrompt frames every run.
const DefaultSystemPrompt = "You are a helpful financial assistant. " +
	"When asked about a stock (either by ticker or company name), " +
	"you may call tools to look up its historical prices, recent news, or stock insights. " +
	"Always respond to the user in a clear, simple, and conversational way."

// NoAnswerText is the final text of a run that exhausted its budget
// without the model ever producing text.
const NoAnswerText = "no answer reached"

// State of the loop. Done and Failed are terminal.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateExecutingTool State = "executing_tool"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Stop reasons reported in Output.StopReason.
const (
	StopAnswer   = "answer"
	StopMaxSteps = "max_steps"
	StopError    = "error"
)

// Runner answers one user message. *Agent implements it.
type Runner interface {
	Run(ctx context.Context, input *Input) (*Output, error)
}

type Input struct {
	Message  string
	History  []llm.Message
	MaxSteps int // 0 = Config.MaxSteps
	Logger   *logger.Logger
}

type Output struct {
	RunID     string
	FinalText string
	Steps     []builtin.Step
	// Messages are the assistant and tool messages produced by this run.
	Messages []llm.Message
	// History is the input history, the user message and Messages, without
	// the system prompt. Callers send it back as the next turn's history.
	History    []llm.Message
	State      State
	StopReason string
	Rounds     int
	ToolCalls  []*tool.CallResult
	Usage      llm.Usage
	Duration   time.Duration
}

type Config struct {
	SystemPrompt  string
	Temperature   *float32
	MaxTokens     int
	MaxSteps      int
	ParallelTools bool
}
