package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrCommand      = errors.New("command failed")
)

// maxErrorOutput bounds how much output is kept in a command error
const maxErrorOutput = 512

// Runner executes commands through /bin/sh, like cron would
type Runner struct {
	shell string
	env   []string
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithShell overrides the shell used to interpret commands
func WithShell(path string) RunnerOption {
	return func(r *Runner) {
		r.shell = path
	}
}

// WithEnv appends KEY=VALUE pairs to the command environment
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// NewRunner creates a new Runner
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{shell: "/bin/sh"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) command(ctx context.Context, command string) (*exec.Cmd, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	return cmd, nil
}

// Run executes a command and discards its output
func (r *Runner) Run(ctx context.Context, command string) error {
	cmd, err := r.command(ctx, command)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return commandError(command, err, out.String())
	}
	return nil
}

// Capture executes a command writing stdout and stderr to w
func (r *Runner) Capture(ctx context.Context, command string, w io.Writer) error {
	cmd, err := r.command(ctx, command)
	if err != nil {
		return err
	}

	// A single writer for both streams keeps their interleaving intact
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return commandError(command, err, "")
	}
	return nil
}

// commandError wraps a failed command with the tail of its output
func commandError(command string, err error, output string) error {
	output = strings.TrimSpace(output)
	if len(output) > maxErrorOutput {
		output = "..." + output[len(output)-maxErrorOutput:]
	}
	if output != "" {
		return fmt.Errorf("%w: %s: %w\n%s", ErrCommand, command, err, output)
	}
	return fmt.Errorf("%w: %s: %w", ErrCommand, command, err)
}

// Join builds a command line from a command and its options
func Join(command, options string) string {
	return strings.TrimSpace(strings.TrimSpace(command) + " " + strings.TrimSpace(options))
}

// Ensure Runner implements Executor interface
var _ Executor = (*Runner)(nil)
