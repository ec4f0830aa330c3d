package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nidhogg/reviewflow/internal/provider"
	"go.uber.org/zap"
)

// ErrTurnBudget is returned when a session exhausts its turn budget while
// the model still wants to call tools. The caller surfaces this as a hard
// failure rather than silently truncating the session.
var ErrTurnBudget = errors.New("session turn budget exceeded")

// Session drives one bounded conversation with the inference engine: send
// prompt, execute requested tools, feed results back, repeat until the
// model stops asking for tools or the turn budget runs out.
type Session struct {
	router    *provider.Router
	role      string
	model     string
	maxTurns  int
	maxTokens int
	tools     *ToolRegistry
	logger    *zap.Logger
}

// Result holds the completed session transcript. Output is the
// concatenation of all text the model produced across turns; it may be
// empty when the session only performed side effects.
type Result struct {
	Output string
	Events []Event
	Turns  int
	Usage  provider.Usage
}

// NewSession creates a session. maxTurns must be at least 1.
func NewSession(router *provider.Router, role, model string, maxTurns, maxTokens int, tools *ToolRegistry, logger *zap.Logger) *Session {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Session{
		router:    router,
		role:      role,
		model:     model,
		maxTurns:  maxTurns,
		maxTokens: maxTokens,
		tools:     tools,
		logger:    logger,
	}
}

// Run executes the session loop to completion.
func (s *Session) Run(ctx context.Context, system, user string) (*Result, error) {
	req := &provider.ChatRequest{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: s.maxTokens,
	}
	if s.tools != nil && len(s.tools.Definitions()) > 0 {
		req.Tools = s.tools.Definitions()
		req.ToolChoice = "auto"
	}

	res := &Result{}
	var output strings.Builder

	for turn := 0; turn < s.maxTurns; turn++ {
		resp, err := s.router.Route(ctx, s.role, req)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", turn+1, err)
		}
		res.Turns = turn + 1
		res.Usage.PromptTokens += resp.Usage.PromptTokens
		res.Usage.CompletionTokens += resp.Usage.CompletionTokens
		res.Usage.TotalTokens += resp.Usage.TotalTokens

		if resp.Content != "" {
			output.WriteString(resp.Content)
			res.Events = append(res.Events, Event{Kind: EventText, Text: resp.Content, At: time.Now()})
		}

		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			res.Output = output.String()
			return res, nil
		}

		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			res.Events = append(res.Events, Event{
				Kind: EventToolCall,
				Call: &ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments},
				At:   time.Now(),
			})

			out, toolErr := s.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			failed := toolErr != nil
			if failed {
				// Tool failures (including policy denials) go back into the
				// model's own turn loop, never up to the caller.
				out = fmt.Sprintf(`{"error":%q}`, toolErr.Error())
			}
			res.Events = append(res.Events, Event{
				Kind:   EventToolResult,
				Result: &ToolResult{CallID: tc.ID, Name: tc.Function.Name, Output: out, Failed: failed},
				At:     time.Now(),
			})
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    out,
				ToolCallID: tc.ID,
			})
		}

		s.logger.Debug("tool turn complete",
			zap.String("role", s.role),
			zap.Int("turn", turn+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	return nil, fmt.Errorf("%d turns: %w", s.maxTurns, ErrTurnBudget)
}
