package engine

import "time"

// EventKind discriminates the closed set of session event variants.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
	EventToolResult
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventToolCall:
		return "tool_call"
	case EventToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

// Event is one element of a session transcript. Exactly one of Text, Call
// or Result is meaningful, selected by Kind.
type Event struct {
	Kind   EventKind   `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Call   *ToolCall   `json:"call,omitempty"`
	Result *ToolResult `json:"result,omitempty"`
	At     time.Time   `json:"at"`
}

// ToolCall records the model requesting a tool invocation.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult records the outcome of one tool invocation. Failed is true
// when the handler returned an error; the error text is folded into Output
// so the model sees it inside its own turn loop.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output string `json:"output"`
	Failed bool   `json:"failed"`
}
