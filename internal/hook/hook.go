package hook

import (
	"context"
	"time"
)

// Point identifies where in a run a hook fires.
type Point string

const (
	OnAgentStart        Point = "on_agent_start"
	BeforeToolExecution Point = "before_tool_execution"
	AfterToolExecution  Point = "after_tool_execution"
	OnAgentEnd          Point = "on_agent_end"
)

// Keys used in Data by the agent and the tool executor.
const (
	KeyQuestion = "question"
	KeyParams   = "params"
	KeyResult   = "result"
	KeyDuration = "duration"
	KeyOutput   = "output"
	KeyError    = "error"
)

// Event carries the payload handed to handlers.
type Event struct {
	Point     Point
	RunID     string
	Timestamp time.Time
	ToolName  string
	Data      map[string]any
}

func NewEvent(point Point, runID string) *Event {
	return &Event{
		Point:     point,
		RunID:     runID,
		Timestamp: time.Now(),
		Data:      make(map[string]any),
	}
}

// ForTool sets the tool the event refers to.
func (e *Event) ForTool(name string) *Event {
	e.ToolName = name
	return e
}

func (e *Event) Set(key string, value any) *Event {
	e.Data[key] = value
	return e
}

func (e *Event) Get(key string) any {
	return e.Data[key]
}

func (e *Event) GetString(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// Feedback is returned by handlers. Only before_tool_execution honors a deny.
type Feedback struct {
	Allow   bool
	Message string
}

func Allow() *Feedback {
	return &Feedback{Allow: true}
}

func Deny(message string) *Feedback {
	return &Feedback{Allow: false, Message: message}
}

// Handler reacts to one or more hook points.
type Handler interface {
	Name() string
	Points() []Point
	Handle(ctx context.Context, event *Event) (*Feedback, error)
	// Priority orders handlers on the same point, higher runs first.
	Priority() int
}
