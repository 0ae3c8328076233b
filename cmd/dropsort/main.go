// Package main provides the entry point for dropsort, which files new downloads
// into dated folders chosen by extension.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on w and maps it to a process status. An interrupt is
// a clean shutdown.
func exitCode(err error, w io.Writer) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintf(w, "dropsort: %v\n", err)
	return domainerrors.CodeOf(err).ExitCode()
}
