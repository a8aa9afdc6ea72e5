// File: cmd/contrast-verify/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/cmd"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/exitcode"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/observability"
)

// Define function variables for dependency injection/mocking in tests.
var (
	// Allows mocking os.Exit in tests.
	osExit = os.Exit
	// Allows replacing the command tree in tests.
	execute = cmd.Execute
)

func main() {
	defer handlePanic()

	// Ctrl-C or SIGTERM aborts the in-flight TeamServer request.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osExit(run(ctx))
}

// run executes the command line and maps the outcome to an exit code.
func run(ctx context.Context) int {
	err := execute(ctx)
	observability.Sync()
	return exitcode.FromError(err)
}

// handlePanic flushes the logs and exits with the error code on a crash.
func handlePanic() {
	if r := recover(); r != nil {
		observability.Sync()
		fmt.Fprintf(os.Stderr, "panic: %v\n\n%s\n", r, debug.Stack())
		osExit(exitcode.Error)
	}
}
