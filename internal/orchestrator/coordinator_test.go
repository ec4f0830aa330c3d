package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/executor"
	"github.com/nidhogg/reviewflow/internal/planner"
	"github.com/nidhogg/reviewflow/internal/review"
	"github.com/nidhogg/reviewflow/internal/workflow"
	"go.uber.org/zap"
)

type fakePlanner struct {
	plan *planner.Plan
	err  error
}

func (f *fakePlanner) Plan(_ context.Context, _ review.Task) (*planner.Plan, error) {
	return f.plan, f.err
}

// fakeExecutor records the digest each step saw and can fail a chosen step.
type fakeExecutor struct {
	digests  []string
	steps    []int
	failStep int
	failErr  error
}

func (f *fakeExecutor) ExecuteStep(_ context.Context, step planner.Step, priorDigest string, _ review.Task) (string, error) {
	f.digests = append(f.digests, priorDigest)
	f.steps = append(f.steps, step.Number)
	if step.Number == f.failStep {
		return "", f.failErr
	}
	return fmt.Sprintf("output of step %d", step.Number), nil
}

type fakeLifecycle struct {
	started    []string
	completed  []string
	failed     map[string]string
	startErr   error
	wrongOrder bool
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{failed: make(map[string]string)}
}

func (f *fakeLifecycle) Start(_ context.Context, id, _ string) error {
	f.started = append(f.started, id)
	return f.startErr
}

func (f *fakeLifecycle) Complete(_ context.Context, id string) error {
	if len(f.started) == 0 {
		f.wrongOrder = true
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeLifecycle) Fail(_ context.Context, id, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

type fakeSink struct {
	results []review.StepResult
	err     error
}

func (f *fakeSink) InsertStepResult(_ context.Context, _ string, r review.StepResult) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, r)
	return nil
}

type fakeNotifier struct {
	statuses []workflow.Status
}

func (f *fakeNotifier) WorkflowFinished(_ context.Context, _ string, status workflow.Status, _ string) {
	f.statuses = append(f.statuses, status)
}

func threeStepPlan() *planner.Plan {
	return &planner.Plan{Steps: []planner.Step{
		{Number: 1, Description: "fetch the diff"},
		{Number: 2, Description: "check error handling"},
		{Number: 3, Description: "post the review"},
	}}
}

func testTask() review.Task {
	return review.Task{
		WorkflowID: "wf-1",
		Repo:       "acme/widgets",
		ChangeID:   "42",
		Title:      "Fix the frobnicator",
		Token:      "secret-token",
	}
}

func newTestCoordinator(p Planner, e Executor, life Lifecycle, sink ResultSink, n Notifier) *Coordinator {
	return New(p, e, life, sink, n, Config{DigestStepMax: 1024}, zap.NewNop())
}

func TestRunExecutesAllStepsInOrder(t *testing.T) {
	exec := &fakeExecutor{}
	life := newFakeLifecycle()
	sink := &fakeSink{}
	notif := &fakeNotifier{}
	c := newTestCoordinator(&fakePlanner{plan: threeStepPlan()}, exec, life, sink, notif)

	out, err := c.Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != workflow.StatusCompleted {
		t.Fatalf("got status %q, want completed", out.Status)
	}
	if len(out.Steps) != 3 {
		t.Fatalf("got %d results, want 3", len(out.Steps))
	}
	for i, r := range out.Steps {
		if r.StepNumber != i+1 {
			t.Errorf("result %d has step number %d", i, r.StepNumber)
		}
	}
	if got := fmt.Sprint(exec.steps); got != "[1 2 3]" {
		t.Errorf("steps executed out of order: %v", exec.steps)
	}
	if life.wrongOrder || len(life.completed) != 1 {
		t.Errorf("lifecycle transitions wrong: started=%v completed=%v", life.started, life.completed)
	}
	if len(sink.results) != 3 {
		t.Errorf("got %d persisted results, want 3", len(sink.results))
	}
	if len(notif.statuses) != 1 || notif.statuses[0] != workflow.StatusCompleted {
		t.Errorf("notifier saw %v", notif.statuses)
	}
}

func TestDigestContainsOnlyPriorSteps(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestCoordinator(&fakePlanner{plan: threeStepPlan()}, exec, newFakeLifecycle(), nil, nil)

	if _, err := c.Run(context.Background(), testTask()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.digests[0] != "" {
		t.Errorf("first step saw a non-empty digest: %q", exec.digests[0])
	}
	for i, d := range exec.digests[1:] {
		stepSeen := i + 2
		for prior := 1; prior < stepSeen; prior++ {
			marker := fmt.Sprintf("--- step %d ---", prior)
			if !strings.Contains(d, marker) {
				t.Errorf("step %d digest missing %q", stepSeen, marker)
			}
		}
		if strings.Contains(d, fmt.Sprintf("--- step %d ---", stepSeen)) {
			t.Errorf("step %d digest contains its own result", stepSeen)
		}
	}
}

func TestUnparseablePlanFailsWorkflow(t *testing.T) {
	exec := &fakeExecutor{}
	life := newFakeLifecycle()
	notif := &fakeNotifier{}
	p := &fakePlanner{err: &planner.ParseError{Reason: "output is not a JSON array"}}
	c := newTestCoordinator(p, exec, life, nil, notif)

	out, err := c.Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("mid-flight failure must not be a Run error: %v", err)
	}
	if out.Status != workflow.StatusFailed {
		t.Fatalf("got status %q, want failed", out.Status)
	}
	if len(exec.steps) != 0 {
		t.Errorf("steps executed despite unparseable plan: %v", exec.steps)
	}
	if life.failed["wf-1"] == "" {
		t.Error("expected a recorded failure message")
	}
	if len(notif.statuses) != 1 || notif.statuses[0] != workflow.StatusFailed {
		t.Errorf("notifier saw %v", notif.statuses)
	}
}

func TestStepFailureStopsExecution(t *testing.T) {
	budgetErr := &executor.StepError{
		StepNumber: 2,
		Err:        fmt.Errorf("10 turns: %w", engine.ErrTurnBudget),
	}
	exec := &fakeExecutor{failStep: 2, failErr: budgetErr}
	life := newFakeLifecycle()
	c := newTestCoordinator(&fakePlanner{plan: threeStepPlan()}, exec, life, nil, nil)

	out, err := c.Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != workflow.StatusFailed {
		t.Fatalf("got status %q, want failed", out.Status)
	}
	if got := fmt.Sprint(exec.steps); got != "[1 2]" {
		t.Errorf("execution did not stop at the failed step: %v", exec.steps)
	}
	// Step 1 finished before the failure; its result survives.
	if len(out.Steps) != 1 || out.Steps[0].StepNumber != 1 {
		t.Errorf("got results %v, want step 1 only", out.Steps)
	}
	if !strings.Contains(out.ErrorMessage, "step 2") {
		t.Errorf("error message does not name the step: %q", out.ErrorMessage)
	}
}

func TestInvalidTaskIsRejectedBeforeStart(t *testing.T) {
	life := newFakeLifecycle()
	c := newTestCoordinator(&fakePlanner{plan: threeStepPlan()}, &fakeExecutor{}, life, nil, nil)

	task := testTask()
	task.Repo = ""
	if _, err := c.Run(context.Background(), task); err == nil {
		t.Fatal("expected validation error")
	}
	if len(life.started) != 0 {
		t.Error("workflow started despite invalid task")
	}
}

func TestSinkFailureDoesNotFailWorkflow(t *testing.T) {
	sink := &fakeSink{err: errors.New("postgres unreachable")}
	c := newTestCoordinator(&fakePlanner{plan: threeStepPlan()}, &fakeExecutor{}, newFakeLifecycle(), sink, nil)

	out, err := c.Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != workflow.StatusCompleted {
		t.Errorf("got status %q, want completed", out.Status)
	}
	if len(out.Steps) != 3 {
		t.Errorf("got %d results, want 3", len(out.Steps))
	}
}
