package workflow

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a workflow. Transitions are monotone:
// running may move to completed or failed, and terminal states are final.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the durable state of one workflow. It outlives the invocation
// that created it.
type Record struct {
	WorkflowID   string    `json:"workflow_id"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	TraceID      string    `json:"trace_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrNotFound is returned by stores when no record exists for an ID.
var ErrNotFound = errors.New("workflow not found")
