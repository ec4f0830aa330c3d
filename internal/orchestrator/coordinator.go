package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/executor"
	"github.com/nidhogg/reviewflow/internal/planner"
	"github.com/nidhogg/reviewflow/internal/review"
	"github.com/nidhogg/reviewflow/internal/window"
	"github.com/nidhogg/reviewflow/internal/workflow"
	"go.uber.org/zap"
)

// Planner produces an ordered review plan for a task.
type Planner interface {
	Plan(ctx context.Context, task review.Task) (*planner.Plan, error)
}

// Executor carries out one plan step and returns its text output.
type Executor interface {
	ExecuteStep(ctx context.Context, step planner.Step, priorDigest string, task review.Task) (string, error)
}

// Lifecycle owns workflow status transitions. The coordinator never
// writes status anywhere else.
type Lifecycle interface {
	Start(ctx context.Context, id, traceID string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, errMsg string) error
}

// ResultSink persists step results. Persistence is an audit trail, not a
// dependency of execution; a sink failure must not fail the workflow.
type ResultSink interface {
	InsertStepResult(ctx context.Context, workflowID string, r review.StepResult) error
}

// Notifier announces terminal workflow statuses.
type Notifier interface {
	WorkflowFinished(ctx context.Context, workflowID string, status workflow.Status, errMsg string)
}

// Config bounds one coordinator run.
type Config struct {
	WindowCapacity int
	WindowEntryMax int
	DigestStepMax  int
}

// Outcome is the terminal result of one workflow run.
type Outcome struct {
	WorkflowID   string              `json:"workflow_id"`
	Status       workflow.Status     `json:"status"`
	Steps        []review.StepResult `json:"steps,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// Coordinator drives one review workflow end to end: plan, then execute
// each step in order, then finish. It holds no state between runs.
type Coordinator struct {
	planner  Planner
	executor Executor
	life     Lifecycle
	sink     ResultSink
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
}

// New creates a coordinator. sink and notifier may be nil.
func New(p Planner, e Executor, life Lifecycle, sink ResultSink, notifier Notifier, cfg Config, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		planner:  p,
		executor: e,
		life:     life,
		sink:     sink,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes one workflow to a terminal status. A workflow that fails
// mid-flight is still a successful Run: the failure lands in the Outcome,
// and the returned error is reserved for inputs rejected before any
// state was written.
func (c *Coordinator) Run(ctx context.Context, task review.Task) (Outcome, error) {
	if err := task.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("invalid task: %w", err)
	}

	traceID := uuid.NewString()
	log := c.logger.With(
		zap.String("workflow_id", task.WorkflowID),
		zap.String("trace_id", traceID))

	if err := c.life.Start(ctx, task.WorkflowID, traceID); err != nil {
		return Outcome{}, fmt.Errorf("start workflow: %w", err)
	}

	win := window.New(c.cfg.WindowCapacity, c.cfg.WindowEntryMax)

	plan, err := c.planner.Plan(ctx, task)
	if err != nil {
		var parseErr *planner.ParseError
		if errors.As(err, &parseErr) {
			log.Warn("planner produced an unparseable plan", zap.Error(err))
		} else {
			log.Error("planning failed", zap.Error(err))
		}
		return c.fail(ctx, task.WorkflowID, err.Error(), nil, log), nil
	}
	win.Add("plan", fmt.Sprintf("%d steps planned", len(plan.Steps)))
	log.Info("executing plan", zap.Int("steps", len(plan.Steps)))

	var results []review.StepResult
	for _, step := range plan.Steps {
		digest := review.Digest(results, c.cfg.DigestStepMax)
		output, err := c.executor.ExecuteStep(ctx, step, digest, task)
		if err != nil {
			var stepErr *executor.StepError
			switch {
			case errors.As(err, &stepErr) && errors.Is(err, engine.ErrTurnBudget):
				log.Warn("step ran out of turns", zap.Int("step", stepErr.StepNumber))
			case errors.As(err, &stepErr):
				log.Error("step failed", zap.Int("step", stepErr.StepNumber), zap.Error(stepErr.Err))
			default:
				log.Error("step failed", zap.Error(err))
			}
			return c.fail(ctx, task.WorkflowID, err.Error(), results, log), nil
		}

		r := review.StepResult{
			StepNumber: step.Number,
			Output:     output,
			ProducedAt: time.Now(),
		}
		results = append(results, r)
		if c.sink != nil {
			if err := c.sink.InsertStepResult(ctx, task.WorkflowID, r); err != nil {
				log.Warn("step result not persisted", zap.Int("step", step.Number), zap.Error(err))
			}
		}
		win.Add("step", fmt.Sprintf("step %d: %s", step.Number, output))
	}

	if err := c.life.Complete(ctx, task.WorkflowID); err != nil {
		log.Error("failed to record completion", zap.Error(err))
		return Outcome{}, fmt.Errorf("complete workflow: %w", err)
	}
	c.notify(ctx, task.WorkflowID, workflow.StatusCompleted, "")
	log.Info("workflow completed", zap.Int("steps", len(results)), zap.Int("window", win.Len()))

	return Outcome{
		WorkflowID: task.WorkflowID,
		Status:     workflow.StatusCompleted,
		Steps:      results,
	}, nil
}

func (c *Coordinator) fail(ctx context.Context, id, errMsg string, results []review.StepResult, log *zap.Logger) Outcome {
	if err := c.life.Fail(ctx, id, errMsg); err != nil {
		log.Error("failed to record failure", zap.Error(err))
	}
	c.notify(ctx, id, workflow.StatusFailed, errMsg)
	return Outcome{
		WorkflowID:   id,
		Status:       workflow.StatusFailed,
		Steps:        results,
		ErrorMessage: errMsg,
	}
}

func (c *Coordinator) notify(ctx context.Context, id string, status workflow.Status, errMsg string) {
	if c.notifier != nil {
		c.notifier.WorkflowFinished(ctx, id, status, errMsg)
	}
}
