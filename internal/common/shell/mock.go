package shell

import (
	"context"
	"io"
)

// MockExecutor implements Executor for testing.
// Each method can be configured with a custom function to control behavior.
type MockExecutor struct {
	RunFunc     func(ctx context.Context, command string) error
	CaptureFunc func(ctx context.Context, command string, w io.Writer) error

	// Commands records every command in invocation order
	Commands []string
}

// Run executes a command and discards its output
func (m *MockExecutor) Run(ctx context.Context, command string) error {
	m.Commands = append(m.Commands, command)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, command)
	}
	return nil
}

// Capture executes a command writing its output to w
func (m *MockExecutor) Capture(ctx context.Context, command string, w io.Writer) error {
	m.Commands = append(m.Commands, command)
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, command, w)
	}
	return nil
}

// Count returns how many times command was invoked
func (m *MockExecutor) Count(command string) int {
	n := 0
	for _, c := range m.Commands {
		if c == command {
			n++
		}
	}
	return n
}

// Ensure MockExecutor implements Executor interface
var _ Executor = (*MockExecutor)(nil)
