package handlers

import (
	"context"
	"fmt"

	"investai/internal/agent"
	"investai/internal/hook"
	"investai/internal/storage"
)

// RunStore is the part of the audit store the handler writes to.
type RunStore interface {
	SaveRun(ctx context.Context, run *storage.Run) error
}

// AuditHandler persists every finished run, answered or failed.
type AuditHandler struct {
	store    RunStore
	provider string
	model    string
}

func NewAuditHandler(store RunStore, provider, model string) *AuditHandler {
	return &AuditHandler{store: store, provider: provider, model: model}
}

func (h *AuditHandler) Name() string {
	return "audit"
}

func (h *AuditHandler) Points() []hook.Point {
	return []hook.Point{hook.OnAgentEnd}
}

func (h *AuditHandler) Priority() int {
	return 0
}

func (h *AuditHandler) Handle(ctx context.Context, event *hook.Event) (*hook.Feedback, error) {
	out, ok := event.Get(hook.KeyOutput).(*agent.Output)
	if !ok {
		return nil, fmt.Errorf("audit: event has no run output")
	}

	steps := make([]storage.Step, len(out.Steps))
	for i, s := range out.Steps {
		steps[i] = storage.Step{Calculation: s.Calculation, Reasoning: s.Reasoning}
	}

	run := &storage.Run{
		ID:         out.RunID,
		CreatedAt:  event.Timestamp,
		Question:   event.GetString(hook.KeyQuestion),
		FinalText:  out.FinalText,
		Steps:      steps,
		Rounds:     out.Rounds,
		ToolCalls:  len(out.ToolCalls),
		State:      string(out.State),
		StopReason: out.StopReason,
		Error:      event.GetString(hook.KeyError),
		Provider:   h.provider,
		Model:      h.model,
		DurationMS: out.Duration.Milliseconds(),
	}
	// the request context may already be cancelled; the audit row still matters
	if err := h.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("audit: save run %s: %w", out.RunID, err)
	}
	return hook.Allow(), nil
}
