package handlers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"investai/internal/agent"
	"investai/internal/hook"
	"investai/internal/storage"
	"investai/internal/tool/builtin"
)

func TestAuditHandler_SavesRun(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	defer store.Close()

	h := NewAuditHandler(store, "openrouter", "mistralai/mistral-nemo:free")
	out := &agent.Output{
		RunID:      "run-42",
		FinalText:  "MSFT is rated BUY.",
		Steps:      []builtin.Step{{Calculation: "n/a", Reasoning: "insights recommendation"}},
		State:      agent.StateDone,
		StopReason: agent.StopAnswer,
		Rounds:     2,
		Duration:   1500 * time.Millisecond,
	}
	event := hook.NewEvent(hook.OnAgentEnd, out.RunID).
		Set(hook.KeyQuestion, "Is MSFT a buy?").
		Set(hook.KeyOutput, out)

	// a cancelled request must still be audited
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Handle(ctx, event); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	run, err := store.GetRun(context.Background(), "run-42")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Question != "Is MSFT a buy?" || run.State != "done" || run.DurationMS != 1500 {
		t.Errorf("Unexpected stored run: %+v", run)
	}
	if len(run.Steps) != 1 || run.Steps[0].Reasoning != "insights recommendation" {
		t.Errorf("Steps not stored: %+v", run.Steps)
	}
}

func TestAuditHandler_MissingOutput(t *testing.T) {
	h := NewAuditHandler(nil, "", "")
	if _, err := h.Handle(context.Background(), hook.NewEvent(hook.OnAgentEnd, "r")); err == nil {
		t.Fatal("Expected error when the event carries no output")
	}
}
