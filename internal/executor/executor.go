package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/gate"
	"github.com/nidhogg/reviewflow/internal/planner"
	"github.com/nidhogg/reviewflow/internal/provider"
	"github.com/nidhogg/reviewflow/internal/review"
	"github.com/nidhogg/reviewflow/internal/tools"
	"go.uber.org/zap"
)

const stepSystemPrompt = `You are the execution stage of a code review service.
Carry out exactly the step you are given, using the available tools.
Commands are checked against an allowlist; if one is denied, adapt and try
an allowed alternative. Report what you did and what you found as plain text.`

// StepError is a fatal failure of one step, tagged with the step number.
// Unwrap engine.ErrTurnBudget to distinguish an exhausted turn budget from
// other engine failures.
type StepError struct {
	StepNumber int
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.StepNumber, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Executor runs plan steps, one bounded engine session each.
type Executor struct {
	router    *provider.Router
	gate      *gate.Gate
	runner    tools.CommandRunner
	model     string
	maxTurns  int
	maxTokens int
	logger    *zap.Logger
}

// Config bounds one executor session.
type Config struct {
	Model     string
	MaxTurns  int
	MaxTokens int
}

// New creates an executor.
func New(router *provider.Router, g *gate.Gate, runner tools.CommandRunner, cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Executor{
		router:    router,
		gate:      g,
		runner:    runner,
		model:     cfg.Model,
		maxTurns:  cfg.MaxTurns,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// ExecuteStep runs one step with the elevated tool set and returns the
// session's concatenated text output. Empty output is valid: a step may
// have only performed side effects.
func (e *Executor) ExecuteStep(ctx context.Context, step planner.Step, priorDigest string, task review.Task) (string, error) {
	reg := tools.Elevated(e.gate, e.runner, task, step.Number, e.logger)
	sess := engine.NewSession(e.router, "executor", e.model, e.maxTurns, e.maxTokens, reg, e.logger)

	user := fmt.Sprintf("Repository: %s\nChange: %s\n\nStep %d: %s",
		task.Repo, task.ChangeID, step.Number, step.Description)
	if priorDigest != "" {
		user += "\n\n" + priorDigest
	}

	res, err := sess.Run(ctx, stepSystemPrompt, user)
	if err != nil {
		if errors.Is(err, engine.ErrTurnBudget) {
			e.logger.Warn("step exhausted its turn budget",
				zap.String("workflow_id", task.WorkflowID),
				zap.Int("step", step.Number))
		}
		return "", &StepError{StepNumber: step.Number, Err: err}
	}

	e.logger.Info("step complete",
		zap.String("workflow_id", task.WorkflowID),
		zap.Int("step", step.Number),
		zap.Int("turns", res.Turns),
		zap.Int("output_len", len(res.Output)))
	return res.Output, nil
}
