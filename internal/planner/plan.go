package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step is one unit of work in a plan.
type Step struct {
	Number      int      `json:"step"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

// Plan is the ordered step list produced once per workflow. It is
// immutable after parsing.
type Plan struct {
	Steps []Step `json:"steps"`
}

// ParseError reports engine output that does not conform to the plan wire
// shape. It is fatal to the workflow; no partial plan is ever accepted.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "plan parse: " + e.Reason
}

// ParsePlan parses the engine's textual output against the literal wire
// contract: a bare JSON array of {"step", "description", "tools"} objects,
// step numbers 1-based and strictly increasing with no gaps, no fencing,
// no trailing prose. The parser is deterministic: the same input always
// yields the same plan or the same error.
func ParsePlan(raw string) (*Plan, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))

	var steps []Step
	if err := dec.Decode(&steps); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("output is not a JSON array of steps: %v", err)}
	}
	if dec.More() {
		return nil, &ParseError{Reason: "trailing content after plan array"}
	}
	if len(steps) == 0 {
		return nil, &ParseError{Reason: "plan contains no steps"}
	}

	for i, s := range steps {
		if strings.TrimSpace(s.Description) == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("step %d has no description", s.Number)}
		}
		if s.Number != i+1 {
			return nil, &ParseError{Reason: fmt.Sprintf(
				"step numbering must be 1-based and strictly increasing: got %d at position %d", s.Number, i+1)}
		}
	}

	return &Plan{Steps: steps}, nil
}
