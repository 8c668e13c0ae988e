// Package cli renders agent results for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"investai/internal/agent"
	"investai/internal/storage"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const wrapWidth = 100

// Renderer prints answers, derivation trails and the run history.
type Renderer struct {
	w         io.Writer
	colorMode bool

	title  lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	failed lipgloss.Style
}

func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	r := &Renderer{w: w}
	r.SetColorMode(true)
	return r
}

// SetColorMode switches between styled and plain output.
func (r *Renderer) SetColorMode(enabled bool) {
	r.colorMode = enabled
	lr := lipgloss.NewRenderer(r.w)
	plain := lr.NewStyle()
	if !enabled {
		r.title, r.label, r.dim, r.ok, r.warn, r.failed = plain, plain, plain, plain, plain, plain
		return
	}
	r.title = lr.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	r.label = lr.NewStyle().Foreground(lipgloss.Color("243"))
	r.dim = lr.NewStyle().Foreground(lipgloss.Color("241"))
	r.ok = lr.NewStyle().Foreground(lipgloss.Color("46"))
	r.warn = lr.NewStyle().Foreground(lipgloss.Color("220"))
	r.failed = lr.NewStyle().Foreground(lipgloss.Color("196"))
}

// RenderOutput prints the derivation trail, then the answer as markdown.
func (r *Renderer) RenderOutput(out *agent.Output) error {
	if len(out.Steps) > 0 {
		fmt.Fprintln(r.w, r.title.Render("How I got there"))
		for i, s := range out.Steps {
			fmt.Fprintf(r.w, "%s %s\n", r.label.Render(fmt.Sprintf("%d.", i+1)), s.Reasoning)
			if s.Calculation != "" {
				fmt.Fprintf(r.w, "   %s\n", r.dim.Render(s.Calculation))
			}
		}
		fmt.Fprintln(r.w)
	}

	answer, err := r.markdown(out.FinalText)
	if err != nil {
		return err
	}
	fmt.Fprint(r.w, answer)

	fmt.Fprintln(r.w, r.dim.Render(fmt.Sprintf("%s · %d rounds · %d tool calls · %s",
		r.status(string(out.State), out.StopReason), out.Rounds, len(out.ToolCalls), out.Duration.Round(time.Millisecond))))
	return nil
}

// RenderRuns prints one line per stored run, newest first.
func (r *Renderer) RenderRuns(runs []*storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(r.w, r.dim.Render("No runs recorded yet."))
		return
	}
	fmt.Fprintln(r.w, r.title.Render("Recent runs"))
	for _, run := range runs {
		fmt.Fprintf(r.w, "%s  %s  %s\n",
			r.label.Render(run.CreatedAt.Local().Format("2006-01-02 15:04")),
			r.status(run.State, run.StopReason),
			truncate(run.Question, 60))
		text := run.FinalText
		if run.Error != "" {
			text = run.Error
		}
		fmt.Fprintf(r.w, "    %s\n", r.dim.Render(truncate(text, 90)))
	}
}

func (r *Renderer) status(state, stopReason string) string {
	label := state
	if stopReason != "" {
		label += "/" + stopReason
	}
	switch {
	case state == string(agent.StateFailed):
		return r.failed.Render(label)
	case stopReason == agent.StopMaxSteps:
		return r.warn.Render(label)
	default:
		return r.ok.Render(label)
	}
}

func (r *Renderer) markdown(text string) (string, error) {
	style := "dark"
	if !r.colorMode {
		style = "notty"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return md.Render(text)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
