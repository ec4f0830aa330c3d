package planner

import (
	"context"
	"fmt"

	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/review"
	"go.uber.org/zap"
)

const planSystemPrompt = `You are the planning stage of a code review service.
Given a change to review, produce an ordered plan of concrete review steps.

Respond with ONLY a JSON array, no markdown fencing, no prose before or
after. Each element must be {"step": <n>, "description": "<what to do>",
"tools": ["<tool name>", ...]}. Step numbers start at 1 and increase by 1.`

// SessionFactory builds a fresh bounded engine session for one task. The
// planner's sessions carry only read-only tools; planning must not mutate
// external state.
type SessionFactory func(task review.Task) *engine.Session

// Planner turns a task into a plan with a single engine session.
type Planner struct {
	sessions SessionFactory
	logger   *zap.Logger
}

// New creates a planner.
func New(sessions SessionFactory, logger *zap.Logger) *Planner {
	return &Planner{sessions: sessions, logger: logger}
}

// Plan runs one planning session and parses its output strictly. The
// engine is not deterministic; callers must not assume a retry yields the
// same plan.
func (p *Planner) Plan(ctx context.Context, task review.Task) (*Plan, error) {
	user := fmt.Sprintf("Repository: %s\nChange: %s\nTitle: %s\n\n%s",
		task.Repo, task.ChangeID, task.Title, task.Body)

	sess := p.sessions(task)
	res, err := sess.Run(ctx, planSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("planning session: %w", err)
	}

	plan, err := ParsePlan(res.Output)
	if err != nil {
		return nil, err
	}

	p.logger.Info("plan ready",
		zap.String("workflow_id", task.WorkflowID),
		zap.Int("steps", len(plan.Steps)),
		zap.Int("turns", res.Turns))
	return plan, nil
}
