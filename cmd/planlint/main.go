package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nidhogg/reviewflow/internal/planner"
)

// planlint validates a review plan read from stdin and prints its steps.
// Useful for checking planner prompts by hand.
func main() {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
		os.Exit(1)
	}

	plan, err := planner.ParsePlan(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid plan: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("plan ok: %d steps\n", len(plan.Steps))
	for _, s := range plan.Steps {
		fmt.Printf("  %d. %s\n", s.Number, s.Description)
		if len(s.Tools) > 0 {
			fmt.Printf("     tools: %v\n", s.Tools)
		}
	}
}
