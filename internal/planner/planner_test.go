package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/provider"
	"github.com/nidhogg/reviewflow/internal/review"
	"go.uber.org/zap"
)

type plannerClient struct {
	output string
}

func (c *plannerClient) ID() string   { return "fake" }
func (c *plannerClient) Name() string { return "fake" }

func (c *plannerClient) Chat(context.Context, *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: c.output, FinishReason: "stop"}, nil
}

func (c *plannerClient) HealthCheck(context.Context) error { return nil }

func newTestPlanner(t *testing.T, output string) *Planner {
	t.Helper()
	router := provider.NewRouter(zap.NewNop())
	router.Register(&plannerClient{output: output})
	factory := func(review.Task) *engine.Session {
		return engine.NewSession(router, "planner", "m", 4, 2048, engine.NewToolRegistry(), zap.NewNop())
	}
	return New(factory, zap.NewNop())
}

func testTask() review.Task {
	return review.Task{WorkflowID: "wf-1", Repo: "acme/widgets", ChangeID: "42", Title: "Fix bug"}
}

func TestPlanParsesEngineOutput(t *testing.T) {
	p := newTestPlanner(t, `[{"step":1,"description":"look at the diff","tools":["fetch_diff"]},{"step":2,"description":"comment","tools":["post_review"]}]`)

	plan, err := p.Plan(context.Background(), testTask())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(plan.Steps))
	}
	if plan.Steps[1].Description != "comment" {
		t.Errorf("got description %q", plan.Steps[1].Description)
	}
}

func TestPlanSurfacesParseError(t *testing.T) {
	p := newTestPlanner(t, "not json")

	_, err := p.Plan(context.Background(), testTask())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *ParseError", err)
	}
}
