package shell

import (
	"context"
	"io"
)

// Executor defines the interface for running external commands.
// This interface allows for mocking the package manager in tests.
type Executor interface {
	// Run executes a command and discards its output.
	// The output is only used to enrich the returned error.
	Run(ctx context.Context, command string) error

	// Capture executes a command and writes its combined stdout and
	// stderr to w, in the order the process emitted it.
	Capture(ctx context.Context, command string, w io.Writer) error
}
