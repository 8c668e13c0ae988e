package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"investai/internal/agent"
	"investai/internal/storage"
	"investai/internal/tool/builtin"
)

func TestRenderer_RenderOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.SetColorMode(false)

	err := r.RenderOutput(&agent.Output{
		FinalText: "Apple closed at **185.64** yesterday.",
		Steps: []builtin.Step{
			{Calculation: "close[-1] = 185.64", Reasoning: "Took the latest daily bar"},
		},
		State:      agent.StateDone,
		StopReason: agent.StopAnswer,
		Rounds:     2,
		Duration:   1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RenderOutput failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"How I got there", "Took the latest daily bar", "close[-1] = 185.64", "185.64", "done/answer", "2 rounds"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output:\n%s", want, got)
		}
	}
}

func TestRenderer_RenderRuns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.SetColorMode(false)

	r.RenderRuns([]*storage.Run{
		{CreatedAt: time.Now(), Question: "How is NVDA doing?", FinalText: "Up 4% this week.", State: "done", StopReason: "answer"},
		{CreatedAt: time.Now(), Question: "Break things", State: "failed", StopReason: "error", Error: "unknown_tool: nope"},
	})

	got := buf.String()
	for _, want := range []string{"How is NVDA doing?", "Up 4% this week.", "failed/error", "unknown_tool: nope"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output:\n%s", want, got)
		}
	}
}

func TestRenderer_NoRuns(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).RenderRuns(nil)
	if !strings.Contains(buf.String(), "No runs recorded yet.") {
		t.Errorf("Unexpected output: %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Errorf("Expected whitespace collapsed, got %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("Unexpected truncation: %q", got)
	}
}
