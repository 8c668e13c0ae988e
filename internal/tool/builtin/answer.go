package builtin

import (
	"encoding/json"
	"fmt"

	"investai/internal/tool"
)

// Step is one entry of the derivation trail attached to a final answer.
type Step struct {
	Calculation string `json:"calculation"`
	Reasoning   string `json:"reasoning"`
}

type AnswerInput struct {
	Steps  []Step `json:"steps" jsonschema_description:"How the answer was derived, in order"`
	Answer string `json:"answer" jsonschema_description:"The final answer shown to the user"`
}

// AnswerTool is the terminal tool. It is never executed: the loop reads its
// arguments as the run's result.
type AnswerTool struct{}

func NewAnswerTool() *AnswerTool {
	return &AnswerTool{}
}

func (t *AnswerTool) Name() string {
	return AnswerName
}

func (t *AnswerTool) Description() string {
	return "A tool for providing the final answer."
}

func (t *AnswerTool) Parameters() map[string]any {
	return tool.SchemaFor[AnswerInput]()
}

func (t *AnswerTool) Terminal() {}

// ParseAnswer decodes the arguments of an answer call.
func ParseAnswer(args json.RawMessage) (*AnswerInput, error) {
	var in AnswerInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if in.Steps == nil {
		in.Steps = []Step{}
	}
	return &in, nil
}
