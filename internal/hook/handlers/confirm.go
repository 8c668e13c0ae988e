package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"investai/internal/hook"
)

// ToolConfirmHandler asks the user before a tool runs. A denial is reported
// back to the model as a failed tool result, so the run continues.
// Prompts are serialized: parallel tool calls ask one at a time.
type ToolConfirmHandler struct {
	mu        sync.Mutex
	in        *bufio.Scanner
	out       io.Writer
	toolNames map[string]bool // empty = every tool
}

// NewToolConfirmHandler reads answers from in, which should be the same
// scanner the caller reads prompts from so buffered input is not lost.
func NewToolConfirmHandler(in *bufio.Scanner, out io.Writer, tools ...string) *ToolConfirmHandler {
	toolNames := make(map[string]bool)
	for _, t := range tools {
		toolNames[t] = true
	}
	return &ToolConfirmHandler{
		in:        in,
		out:       out,
		toolNames: toolNames,
	}
}

func (h *ToolConfirmHandler) Name() string {
	return "tool_confirm"
}

func (h *ToolConfirmHandler) Points() []hook.Point {
	return []hook.Point{hook.BeforeToolExecution}
}

func (h *ToolConfirmHandler) Priority() int {
	return 100
}

func (h *ToolConfirmHandler) Handle(ctx context.Context, event *hook.Event) (*hook.Feedback, error) {
	if len(h.toolNames) > 0 && !h.toolNames[event.ToolName] {
		return hook.Allow(), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.out, "\n\033[33m⚠️  Tool '%s' requires confirmation:\033[0m\n", event.ToolName)
	if params := event.GetString(hook.KeyParams); params != "" {
		fmt.Fprintf(h.out, "    Parameters: %s\n", params)
	}
	fmt.Fprintf(h.out, "\nAllow? [y/N]: ")

	if !h.in.Scan() {
		return hook.Deny("No input received"), nil
	}

	switch strings.TrimSpace(strings.ToLower(h.in.Text())) {
	case "y", "yes":
		fmt.Fprintf(h.out, "\033[32m✓ Allowed\033[0m\n\n")
		return hook.Allow(), nil
	default:
		fmt.Fprintf(h.out, "\033[31m✗ Denied\033[0m\n\n")
		return hook.Deny("User denied tool execution"), nil
	}
}
