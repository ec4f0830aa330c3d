package review

import (
	"fmt"
	"strings"
	"time"
)

// Task is the immutable input for one review workflow. It is created once
// per invocation and read-only afterwards.
type Task struct {
	WorkflowID string `json:"workflow_id"`
	Repo       string `json:"repo"`      // owner/name
	ChangeID   string `json:"change_id"` // PR number or branch ref
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	// Token authenticates tool calls made on the caller's behalf. It is
	// passed to tools through the process environment, never interpolated
	// into prompt text, and never serialized.
	Token string `json:"-"`
}

// Validate checks the fields required to accept a task.
func (t Task) Validate() error {
	if strings.TrimSpace(t.WorkflowID) == "" {
		return fmt.Errorf("workflow_id is required")
	}
	if strings.TrimSpace(t.Repo) == "" {
		return fmt.Errorf("repo is required")
	}
	if strings.TrimSpace(t.ChangeID) == "" {
		return fmt.Errorf("change_id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// StepResult is the recorded output of one executed plan step. Results are
// appended in step order and never mutated afterwards.
type StepResult struct {
	StepNumber int       `json:"step_number"`
	Output     string    `json:"output"`
	ProducedAt time.Time `json:"produced_at"`
}

// Digest renders prior step results into the bounded text summary passed to
// later steps. Each step's output is truncated to maxPerStep bytes so the
// digest grows linearly in step count, not in raw transcript size.
func Digest(results []StepResult, maxPerStep int) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Results from earlier steps:\n")
	for _, r := range results {
		out := strings.TrimSpace(r.Output)
		if out == "" {
			out = "(no output)"
		}
		if maxPerStep > 0 && len(out) > maxPerStep {
			out = out[:maxPerStep] + "..."
		}
		fmt.Fprintf(&b, "\n--- step %d ---\n%s\n", r.StepNumber, out)
	}
	return b.String()
}
