package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Round progress and request lifecycle
	LevelTool               // Tool call related
	LevelAgent              // Final answers
	LevelError              // Error messages
)

// ANSI color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// maxResultLines and maxResultLength bound how much of a tool result is echoed.
// Price series can be thousands of lines long.
const (
	maxResultLines  = 3
	maxResultLength = 400
)

// Logger writes leveled, optionally colored output for agent runs.
// It is safe for concurrent use; the HTTP server shares one Logger across requests.
type Logger struct {
	mu        sync.Mutex
	writer    io.Writer
	level     Level
	showTime  bool
	colorMode bool
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		writer:    w,
		level:     level,
		showTime:  true,
		colorMode: true,
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	l := NewLogger(io.Discard, LevelError+1)
	l.colorMode = false
	return l
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
}

// SetShowTime enables or disables timestamp display
func (l *Logger) SetShowTime(enabled bool) {
	l.showTime = enabled
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.log(ColorGray, "DEBUG", format, args...)
	}
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorBlue, "INFO", format, args...)
	}
}

// Warn logs recoverable problems, such as a data provider failure the model can work around.
func (l *Logger) Warn(format string, args ...any) {
	if l.level <= LevelError {
		l.log(ColorYellow, "WARN", format, args...)
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	if l.level <= LevelError {
		l.log(ColorRed, "ERROR", format, args...)
	}
}

// Round logs the start of an agent round with a budget bar.
func (l *Logger) Round(current, max int) {
	if l.level > LevelInfo {
		return
	}
	l.log(ColorBlue, "ROUND", "%s %d/%d: calling model", l.progressBar(current, max, 20), current, max)
}

// ToolCall logs a tool call with its parameters
func (l *Logger) ToolCall(toolName string, params string) {
	if l.level <= LevelTool {
		l.printSection(ColorCyan, fmt.Sprintf("🔧 Tool Call: %s", toolName), l.formatJSON(params))
	}
}

// ToolResult logs a tool execution result
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	if l.level > LevelTool {
		return
	}
	status := "✅ Success"
	color := ColorGreen
	if !success {
		status = "❌ Failed"
		color = ColorRed
	}

	header := fmt.Sprintf("📊 Tool Result: %s [%s] (%s)", toolName, status, duration.Round(time.Millisecond))
	l.printSection(color, header, truncateOutput(output))
}

// Answer logs the terminal answer together with its derivation trail.
func (l *Logger) Answer(answer string, steps []string) {
	if l.level > LevelAgent {
		return
	}
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	if len(steps) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(answer)
	l.printSection(ColorGreen, "💬 Answer", b.String())
}

// SessionStart logs the beginning of an agent run
func (l *Logger) SessionStart(runID, question string) {
	if l.level > LevelInfo {
		return
	}
	l.printBanner(ColorCyan, "🚀 Run "+runID, question)
}

// SessionEnd logs the completion of an agent run with statistics
func (l *Logger) SessionEnd(duration time.Duration, rounds, toolCalls int, stopReason string) {
	if l.level > LevelInfo {
		return
	}
	summary := fmt.Sprintf("Duration: %s | Rounds: %d | Tool Calls: %d | Stop: %s",
		duration.Round(time.Millisecond), rounds, toolCalls, stopReason)
	l.printBanner(ColorGreen, "✨ Run Completed", summary)
}

// log is the core logging method
func (l *Logger) log(color, level, format string, args ...any) {
	timestamp := ""
	if l.showTime {
		timestamp = time.Now().Format("15:04:05") + " "
	}

	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "%s%s[%s]%s %s\n", color, timestamp, level, ColorReset, msg)
	} else {
		fmt.Fprintf(l.writer, "%s[%s] %s\n", timestamp, level, msg)
	}
}

// printSection prints a formatted section with header and content
func (l *Logger) printSection(color, header, content string) {
	separator := strings.Repeat("─", 60)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, header, ColorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s\n", content)
		fmt.Fprintf(l.writer, "%s%s%s\n\n", color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n%s\n\n", header, separator, content, separator)
	}
}

// printBanner prints a prominent banner for run start/end
func (l *Logger) printBanner(color, title, subtitle string) {
	separator := strings.Repeat("═", 70)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s%s  %s%s\n", ColorBold, color, title, ColorReset)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "%s  %s%s\n", color, subtitle, ColorReset)
		}
		fmt.Fprintf(l.writer, "%s%s%s%s\n\n", ColorBold, color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n  %s\n", separator, title)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "  %s\n", subtitle)
		}
		fmt.Fprintf(l.writer, "%s\n\n", separator)
	}
}

// progressBar renders how much of the step budget has been used.
func (l *Logger) progressBar(current, total, width int) string {
	if total <= 0 {
		return ""
	}
	if current > total {
		current = total
	}

	filled := current * width / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if l.colorMode {
		return ColorCyan + bar + ColorReset
	}
	return bar
}

// formatJSON formats JSON strings adaptively based on length
// Short JSON (< 80 chars) stays compact, long JSON gets pretty-printed
func (l *Logger) formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)
	if len(compact) < 80 {
		return compact
	}

	var obj any
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}
	return string(pretty)
}

func truncateOutput(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	display := output
	truncatedLines := false

	if len(lines) > maxResultLines {
		display = strings.Join(lines[:maxResultLines], "\n")
		truncatedLines = true
	}

	if len(display) > maxResultLength {
		display = display[:maxResultLength] + "..."
	} else if truncatedLines {
		display += "\n..."
	}
	return display
}
