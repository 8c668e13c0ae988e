package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"investai/internal/llm"
)

// historyMessage is a transcript entry as clients send it back. Content is
// either a string or an array of parts (text, tool-call, tool-result), the
// shape AI SDK clients replay.
type historyMessage struct {
	Role       llm.Role        `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCalls  []*llm.ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	Name       string          `json:"name,omitempty"`
	Timestamp  time.Time       `json:"timestamp,omitzero"`
}

type contentPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
	Args       json.RawMessage `json:"args"`
	Output     json.RawMessage `json:"output"`
	Result     json.RawMessage `json:"result"`
}

// decodeHistory checks roles, drops system messages and flattens part
// arrays. Older clients echo back the system prompt; the agent always
// supplies its own. A tool message carrying several results becomes one
// tool message per result.
func decodeHistory(in []historyMessage) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(in))
	for i, h := range in {
		switch h.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleUser, llm.RoleAssistant, llm.RoleTool:
		default:
			return nil, fmt.Errorf("conversationHistory[%d]: unknown role %q", i, h.Role)
		}

		msgs, err := h.messages()
		if err != nil {
			return nil, fmt.Errorf("conversationHistory[%d]: %w", i, err)
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func (h historyMessage) messages() ([]llm.Message, error) {
	base := llm.Message{
		Role:       h.Role,
		ToolCalls:  h.ToolCalls,
		ToolCallID: h.ToolCallID,
		Name:       h.Name,
		Timestamp:  h.Timestamp,
	}

	content := bytes.TrimSpace(h.Content)
	switch {
	case len(content) == 0 || string(content) == "null":
		return []llm.Message{base}, nil
	case content[0] == '"':
		if err := json.Unmarshal(content, &base.Content); err != nil {
			return nil, err
		}
		return []llm.Message{base}, nil
	case content[0] != '[':
		return nil, errors.New("content must be a string or an array of parts")
	}

	var parts []contentPart
	if err := json.Unmarshal(content, &parts); err != nil {
		return nil, fmt.Errorf("content parts: %w", err)
	}

	var (
		texts   []string
		results []llm.Message
	)
	for _, p := range parts {
		switch p.Type {
		case "text":
			texts = append(texts, p.Text)
		case "tool-call":
			args := firstRaw(p.Input, p.Args)
			if args == "" {
				args = "{}"
			}
			base.ToolCalls = append(base.ToolCalls, &llm.ToolCall{
				ID:       p.ToolCallID,
				Type:     "function",
				Function: &llm.FunctionCall{Name: p.ToolName, Arguments: args},
			})
		case "tool-result":
			results = append(results, llm.Message{
				Role:       llm.RoleTool,
				Content:    resultText(firstRaw(p.Output, p.Result)),
				ToolCallID: p.ToolCallID,
				Name:       p.ToolName,
				Timestamp:  h.Timestamp,
			})
		}
		// reasoning, image and file parts carry nothing the loop can replay
	}

	if len(results) > 0 {
		if h.Role != llm.RoleTool {
			return nil, fmt.Errorf("tool-result parts in a %s message", h.Role)
		}
		return results, nil
	}
	base.Content = strings.Join(texts, "\n")
	return []llm.Message{base}, nil
}

func firstRaw(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if c := bytes.TrimSpace(c); len(c) > 0 && string(c) != "null" {
			return string(c)
		}
	}
	return ""
}

// resultText unwraps {"type": ..., "value": ...} outputs and JSON strings.
func resultText(raw string) string {
	if raw == "" {
		return ""
	}
	var typed struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if strings.HasPrefix(raw, "{") && json.Unmarshal([]byte(raw), &typed) == nil && typed.Type != "" && len(typed.Value) > 0 {
		raw = string(typed.Value)
	}
	var s string
	if json.Unmarshal([]byte(raw), &s) == nil {
		return s
	}
	return raw
}
