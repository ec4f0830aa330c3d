package tools

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes a shell command with extra environment variables
// and returns its combined output. Implementations are swapped out in
// tests so tool handlers can be exercised without a real shell.
type CommandRunner interface {
	Run(ctx context.Context, command string, env []string) (string, error)
}

// ExecRunner runs commands through the local shell. Credentials arrive via
// env, never through the command string.
type ExecRunner struct{}

// Run executes the command with `sh -c`, inheriting the process
// environment plus the given extra variables.
func (ExecRunner) Run(ctx context.Context, command string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// shellQuote wraps s in single quotes for safe interpolation into an
// sh -c command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
