package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"investai/internal/errmodel"
	"investai/internal/hook"
	"investai/internal/llm"
	"investai/internal/logger"
	"investai/internal/tool"
	"investai/internal/tool/builtin"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	answerAck  = "Answer recorded."
	answerSkip = "Skipped: the run ended with an answer in the same round."
)

// Agent runs the tool-calling loop against a sealed registry. One Agent is
// shared by all requests; every Run owns its own transcript.
type Agent struct {
	systemPrompt string
	client       llm.Client
	registry     *tool.Registry
	executor     *tool.Executor
	hooks        *hook.Manager
	config       Config
	tracer       trace.Tracer
}

func New(client llm.Client, registry *tool.Registry, cfg Config) (*Agent, error) {
	if client == nil {
		return nil, errmodel.Config("no_model", "agent requires a model client")
	}
	if registry == nil || !registry.Sealed() {
		return nil, errmodel.Config("registry_not_sealed", "agent requires a sealed tool registry")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 5
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	executor := tool.NewExecutor(registry)
	if cfg.ParallelTools {
		executor.SetMode(tool.ExecutionModeParallel)
	}

	return &Agent{
		systemPrompt: cfg.SystemPrompt,
		client:       client,
		registry:     registry,
		executor:     executor,
		config:       cfg,
		tracer:       otel.Tracer("investai/agent"),
	}, nil
}

// SetHookManager sets the hook manager for lifecycle and tool hooks
func (a *Agent) SetHookManager(manager *hook.Manager) {
	a.hooks = manager
	a.executor.SetHookManager(manager)
}

// run is the state owned by a single Run call.
type run struct {
	ec         *ExecutionContext
	transcript []llm.Message
	base       int // index of the first message produced by this run
	fallback   string
	out        *Output
	answer     *builtin.AnswerInput
}

// Run answers input.Message. On failure it returns the partial Output
// (State failed) together with a categorized *errmodel.Error.
func (a *Agent) Run(ctx context.Context, input *Input) (*Output, error) {
	log := input.Logger
	if log == nil {
		log = LoggerFromContext(ctx)
	}
	if log == nil {
		log = logger.Discard()
	}

	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = a.config.MaxSteps
	}

	runID := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.max_steps", maxSteps),
		attribute.String("llm.provider", a.client.Provider()),
		attribute.String("llm.model", a.client.Model()),
		attribute.String("run.terminal_tool", a.registry.Terminal().Name()),
	))
	defer span.End()

	r := &run{
		ec:  NewExecutionContext(runID, log, maxSteps),
		out: &Output{RunID: runID, State: StateAwaitingModel},
	}
	r.transcript = make([]llm.Message, 0, len(input.History)+2+2*maxSteps)
	r.transcript = append(r.transcript, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	r.transcript = append(r.transcript, input.History...)
	r.transcript = append(r.transcript, llm.Message{
		Role:      llm.RoleUser,
		Content:   input.Message,
		Timestamp: time.Now(),
	})
	r.base = len(r.transcript)

	log.SessionStart(runID, input.Message)
	a.hooks.Notify(ctx, hook.NewEvent(hook.OnAgentStart, runID).Set(hook.KeyQuestion, input.Message))

	for r.ec.Round < maxSteps {
		answered, err := a.round(ctx, r)
		if err != nil {
			return a.finish(ctx, span, r, input.Message, StateFailed, StopError, "", err)
		}
		if answered {
			return a.finish(ctx, span, r, input.Message, StateDone, StopAnswer, r.answer.Answer, nil)
		}
	}

	final := r.fallback
	if final == "" {
		final = NoAnswerText
	}
	log.Warn("Step budget of %d exhausted without an answer", maxSteps)
	return a.finish(ctx, span, r, input.Message, StateDone, StopMaxSteps, final, nil)
}

// round performs one model invocation and, unless the model answered,
// executes the requested tools. It reports whether the run is answered.
func (a *Agent) round(ctx context.Context, r *run) (bool, error) {
	n := r.ec.NextRound()
	ctx, span := a.tracer.Start(ctx, "agent.round", trace.WithAttributes(attribute.Int("round", n)))
	defer span.End()

	r.out.State = StateAwaitingModel
	resp, err := a.client.Chat(ctx, &llm.ChatRequest{
		Messages:          r.transcript,
		Tools:             a.registry.Definitions(),
		ToolChoice:        llm.ToolChoiceRequired,
		ParallelToolCalls: a.config.ParallelTools,
		Temperature:       a.config.Temperature,
		MaxTokens:         a.config.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return false, errmodel.Model("gateway_error", "model gateway call failed", err)
	}
	r.out.Usage.Add(resp.Usage)

	msg := resp.Message
	if text := strings.TrimSpace(msg.Content); text != "" {
		r.fallback = text
	}

	// A tool is required every round. A text-only reply spends the round
	// and is left out of the transcript.
	if len(msg.ToolCalls) == 0 {
		r.ec.Logger.Warn("Round %d: model replied without calling a tool", n)
		return false, nil
	}

	terminal := -1
	for i, tc := range msg.ToolCalls {
		if tc == nil || tc.Function == nil {
			return false, errmodel.Validation("malformed_tool_call", "model returned a tool call without a function", nil)
		}
		name := tc.Function.Name
		t, err := a.registry.Get(name)
		if err != nil {
			return false, errmodel.Validation("unknown_tool",
				fmt.Sprintf("model requested unknown tool %q", name), map[string]any{"tool": name})
		}
		if err := a.registry.Validate(name, []byte(tc.Function.Arguments)); err != nil {
			return false, errmodel.Validation("invalid_arguments", err.Error(),
				map[string]any{"tool": name, "arguments": tc.Function.Arguments})
		}

		switch t.(type) {
		case tool.Terminal:
			if terminal < 0 {
				terminal = i
			}
		case tool.Callable:
		default:
			return false, errmodel.Validation("not_dispatchable", fmt.Sprintf("tool %q has no behavior", name), nil)
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	r.transcript = append(r.transcript, msg)

	if terminal >= 0 {
		return true, a.acceptAnswer(r, msg, terminal)
	}

	r.out.State = StateExecutingTool
	for _, tc := range msg.ToolCalls {
		r.ec.LogToolCall(tc.Function.Name, tc.Function.Arguments)
	}

	results, err := a.executor.Execute(ctx, r.ec.RunID, msg.ToolCalls)
	if err != nil {
		return false, errmodel.System("cancelled", "run cancelled", err)
	}

	for _, res := range results {
		r.ec.LogToolResult(res.ToolName, res.Result.Success, res.Result.Content(), res.Duration())
		if !res.Result.Success {
			span.AddEvent("tool.failed", trace.WithAttributes(
				attribute.String("tool", res.ToolName),
				attribute.String("error", res.Result.Error),
			))
		}
		r.transcript = append(r.transcript, llm.Message{
			Role:       llm.RoleTool,
			Content:    res.Result.Content(),
			ToolCallID: res.CallID,
			Name:       res.ToolName,
			Timestamp:  res.EndTime,
		})
	}
	r.out.ToolCalls = append(r.out.ToolCalls, results...)
	r.out.State = StateAwaitingModel
	return false, nil
}

// acceptAnswer records the terminal call and answers every call of the
// assistant message so the transcript stays valid for the next turn.
func (a *Agent) acceptAnswer(r *run, msg llm.Message, terminal int) error {
	call := msg.ToolCalls[terminal]
	answer, err := builtin.ParseAnswer([]byte(call.Function.Arguments))
	if err != nil {
		return errmodel.Validation("invalid_arguments", err.Error(), map[string]any{"tool": call.Function.Name})
	}
	r.answer = answer

	now := time.Now()
	for i, tc := range msg.ToolCalls {
		content := answerSkip
		if i == terminal {
			content = answerAck
		}
		r.transcript = append(r.transcript, llm.Message{
			Role:       llm.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
			Timestamp:  now,
		})
	}

	steps := make([]string, len(answer.Steps))
	for i, s := range answer.Steps {
		steps[i] = s.Calculation + ": " + s.Reasoning
	}
	r.ec.Logger.Answer(answer.Answer, steps)
	return nil
}

func (a *Agent) finish(ctx context.Context, span trace.Span, r *run, question string, state State, stopReason, finalText string, err error) (*Output, error) {
	out := r.out
	out.State = state
	out.StopReason = stopReason
	out.FinalText = finalText
	out.Rounds = r.ec.Round
	out.Duration = r.ec.Elapsed()
	out.Messages = cloneMessages(r.transcript[r.base:])
	out.History = cloneMessages(r.transcript[1:])
	out.Steps = []builtin.Step{}
	if r.answer != nil {
		out.Steps = r.answer.Steps
	}

	span.SetAttributes(
		attribute.String("run.state", string(state)),
		attribute.String("run.stop_reason", stopReason),
		attribute.Int("run.rounds", out.Rounds),
		attribute.Int("run.tool_calls", len(out.ToolCalls)),
	)

	event := hook.NewEvent(hook.OnAgentEnd, out.RunID).
		Set(hook.KeyQuestion, question).
		Set(hook.KeyOutput, out)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.ec.Logger.Error("Run %s failed after %d round(s): %v", out.RunID, out.Rounds, err)
		event.Set(hook.KeyError, err.Error())
	} else {
		r.ec.Logger.SessionEnd(out.Duration, out.Rounds, r.ec.ToolCallCount, stopReason)
	}

	if _, herr := a.hooks.Trigger(ctx, event); herr != nil {
		r.ec.Logger.Warn("%v", herr)
	}
	return out, err
}

func cloneMessages(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}
