package llm

import "context"

// Client is the language model gateway.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

// ToolChoice controls whether the model may answer in free text.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

type ChatRequest struct {
	Messages          []Message
	Tools             []*ToolDefinition
	ToolChoice        ToolChoice
	ParallelToolCalls bool
	Temperature       *float32 // nil = provider default
	MaxTokens         int
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}
