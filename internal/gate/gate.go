package gate

import (
	"strings"

	"go.uber.org/zap"
)

// Proposal is one command submitted for authorization. Proposals are
// ephemeral and never persisted.
type Proposal struct {
	Command    string
	StepNumber int
}

// Decision is the gate's verdict on a proposal.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate authorizes proposed commands against a fixed prefix allowlist.
// Decisions are a pure function of the command string, so a Gate is safe
// for concurrent use. The check inspects only the literal leading prefix
// of the full command string; it does not tokenize or defend against
// shell-metacharacter chaining after an allowed prefix.
type Gate struct {
	prefixes []string
	logger   *zap.Logger
}

// previewLen bounds the command text recorded in decision logs.
const previewLen = 120

// New creates a gate from an allowlist of command prefixes. The list is
// copied; later mutation of the caller's slice has no effect.
func New(prefixes []string, logger *zap.Logger) *Gate {
	copied := make([]string, len(prefixes))
	copy(copied, prefixes)
	return &Gate{prefixes: copied, logger: logger}
}

// Decide returns Allow when the command starts with an allowlisted prefix
// and Deny otherwise. Every decision is logged with a bounded preview.
func (g *Gate) Decide(p Proposal) Decision {
	d := g.decide(p.Command)
	g.logger.Info("command decision",
		zap.String("command", preview(p.Command)),
		zap.Int("step", p.StepNumber),
		zap.Bool("allowed", d.Allowed),
		zap.String("reason", d.Reason))
	return d
}

func (g *Gate) decide(command string) Decision {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Decision{Allowed: false, Reason: "empty command"}
	}
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return Decision{Allowed: true, Reason: "matches allowed prefix " + strings.TrimSpace(prefix)}
		}
	}
	return Decision{Allowed: false, Reason: "command does not start with an allowlisted prefix"}
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen] + "..."
}
