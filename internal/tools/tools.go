package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/gate"
	"github.com/nidhogg/reviewflow/internal/provider"
	"github.com/nidhogg/reviewflow/internal/review"
	"go.uber.org/zap"
)

// Registries are built per session: handlers close over the task so its
// credential token flows through the runner's environment and never
// appears in prompt text. Every command a handler runs — whether built
// internally or proposed by the model — is routed through the gate first.

// ReadOnly returns the planning tool set: inspection only, nothing that
// mutates external state.
func ReadOnly(g *gate.Gate, runner CommandRunner, task review.Task, logger *zap.Logger) *engine.ToolRegistry {
	reg := engine.NewToolRegistry()
	registerFetchDiff(reg, g, runner, task, 0)
	return reg
}

// Elevated returns the execution tool set for one step: the read-only
// tools plus review posting and gated shell command execution.
func Elevated(g *gate.Gate, runner CommandRunner, task review.Task, stepNumber int, logger *zap.Logger) *engine.ToolRegistry {
	reg := engine.NewToolRegistry()
	registerFetchDiff(reg, g, runner, task, stepNumber)

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "post_review",
			Description: "Post a review comment on the change under review",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"body": map[string]string{"type": "string", "description": "Markdown comment body"},
				},
				"required": []string{"body"},
			},
		},
	}, func(ctx context.Context, args string) (string, error) {
		var p struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return "", fmt.Errorf("parse args: %w", err)
		}
		if p.Body == "" {
			return "", fmt.Errorf("body is required")
		}
		cmd := fmt.Sprintf("gh pr comment %s --repo %s --body %s",
			task.ChangeID, task.Repo, shellQuote(p.Body))
		return runGated(ctx, g, runner, task, cmd, stepNumber)
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "run_command",
			Description: "Run a shell command. Only commands matching the allowlist are executed",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"command": map[string]string{"type": "string", "description": "Full command line to run"},
				},
				"required": []string{"command"},
			},
		},
	}, func(ctx context.Context, args string) (string, error) {
		var p struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return "", fmt.Errorf("parse args: %w", err)
		}
		return runGated(ctx, g, runner, task, p.Command, stepNumber)
	})

	return reg
}

func registerFetchDiff(reg *engine.ToolRegistry, g *gate.Gate, runner CommandRunner, task review.Task, stepNumber int) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "fetch_diff",
			Description: "Fetch the diff of the change under review",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}, func(ctx context.Context, _ string) (string, error) {
		cmd := fmt.Sprintf("gh pr diff %s --repo %s", task.ChangeID, task.Repo)
		return runGated(ctx, g, runner, task, cmd, stepNumber)
	})
}

// runGated checks the command against the gate and runs it with the
// task's credentials in the environment. A denial comes back as an error,
// which the session folds into a failed tool result for the model.
func runGated(ctx context.Context, g *gate.Gate, runner CommandRunner, task review.Task, command string, stepNumber int) (string, error) {
	d := g.Decide(gate.Proposal{Command: command, StepNumber: stepNumber})
	if !d.Allowed {
		return "", fmt.Errorf("command denied: %s", d.Reason)
	}
	var env []string
	if task.Token != "" {
		env = append(env, "GH_TOKEN="+task.Token)
	}
	return runner.Run(ctx, command, env)
}
