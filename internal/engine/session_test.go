package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/nidhogg/reviewflow/internal/provider"
	"go.uber.org/zap"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []*provider.ChatResponse
	calls     int
}

func (c *scriptedClient) ID() string   { return "scripted" }
func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Chat(_ context.Context, _ *provider.ChatRequest) (*provider.ChatResponse, error) {
	if c.calls >= len(c.responses) {
		return nil, errors.New("no more scripted responses")
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) HealthCheck(context.Context) error { return nil }

func newTestRouter(t *testing.T, responses ...*provider.ChatResponse) (*provider.Router, *scriptedClient) {
	t.Helper()
	router := provider.NewRouter(zap.NewNop())
	client := &scriptedClient{responses: responses}
	router.Register(client)
	return router, client
}

func toolCallResponse(id, name, args string) *provider.ChatResponse {
	return &provider.ChatResponse{
		FinishReason: "tool_calls",
		ToolCalls: []provider.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: provider.ToolCallFunction{Name: name, Arguments: args},
		}},
	}
}

func echoRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	reg := NewToolRegistry()
	reg.Register(provider.Tool{
		Type:     "function",
		Function: provider.ToolFunction{Name: "echo", Parameters: map[string]interface{}{"type": "object"}},
	}, func(_ context.Context, args string) (string, error) {
		return "echo:" + args, nil
	})
	return reg
}

func TestSessionPlainText(t *testing.T) {
	router, client := newTestRouter(t, &provider.ChatResponse{Content: "done", FinishReason: "stop"})
	sess := NewSession(router, "executor", "m", 5, 1024, NewToolRegistry(), zap.NewNop())

	res, err := sess.Run(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "done" {
		t.Errorf("got output %q, want %q", res.Output, "done")
	}
	if client.calls != 1 {
		t.Errorf("got %d provider calls, want 1", client.calls)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventText {
		t.Errorf("expected single text event, got %+v", res.Events)
	}
}

func TestSessionToolLoop(t *testing.T) {
	router, _ := newTestRouter(t,
		toolCallResponse("c1", "echo", `{"x":1}`),
		&provider.ChatResponse{Content: "final", FinishReason: "stop"},
	)
	sess := NewSession(router, "executor", "m", 5, 1024, echoRegistry(t), zap.NewNop())

	res, err := sess.Run(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "final" {
		t.Errorf("got output %q, want %q", res.Output, "final")
	}
	if res.Turns != 2 {
		t.Errorf("got %d turns, want 2", res.Turns)
	}

	kinds := make([]EventKind, len(res.Events))
	for i, ev := range res.Events {
		kinds[i] = ev.Kind
	}
	want := []EventKind{EventToolCall, EventToolResult, EventText}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
	if res.Events[1].Result.Output != `echo:{"x":1}` {
		t.Errorf("unexpected tool result: %q", res.Events[1].Result.Output)
	}
}

func TestSessionToolFailureStaysInLoop(t *testing.T) {
	router, _ := newTestRouter(t,
		toolCallResponse("c1", "boom", `{}`),
		&provider.ChatResponse{Content: "recovered", FinishReason: "stop"},
	)
	reg := NewToolRegistry()
	reg.Register(provider.Tool{
		Type:     "function",
		Function: provider.ToolFunction{Name: "boom", Parameters: map[string]interface{}{"type": "object"}},
	}, func(context.Context, string) (string, error) {
		return "", errors.New("command denied")
	})
	sess := NewSession(router, "executor", "m", 5, 1024, reg, zap.NewNop())

	res, err := sess.Run(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("tool failure must not fail the session: %v", err)
	}
	if res.Output != "recovered" {
		t.Errorf("got output %q, want %q", res.Output, "recovered")
	}
	var result *ToolResult
	for _, ev := range res.Events {
		if ev.Kind == EventToolResult {
			result = ev.Result
		}
	}
	if result == nil || !result.Failed {
		t.Fatalf("expected failed tool result, got %+v", result)
	}
}

func TestSessionTurnBudget(t *testing.T) {
	router, _ := newTestRouter(t,
		toolCallResponse("c1", "echo", `{}`),
		toolCallResponse("c2", "echo", `{}`),
		toolCallResponse("c3", "echo", `{}`),
	)
	sess := NewSession(router, "executor", "m", 2, 1024, echoRegistry(t), zap.NewNop())

	_, err := sess.Run(context.Background(), "sys", "user")
	if !errors.Is(err, ErrTurnBudget) {
		t.Fatalf("got %v, want ErrTurnBudget", err)
	}
}
