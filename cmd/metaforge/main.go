package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/metaforge/internal/cmd"
	"github.com/felixgeelhaar/metaforge/internal/exitcode"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

func main() {
	// Cancelling the context stops the run; the container is still cleaned up.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ux.RenderError(ux.EnhanceError(err)))
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
