// Package main is the entry point for the pkrelease CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/persistence-kit/pkrelease/internal/cmd"
	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
)

func main() {
	os.Exit(run())
}

// run returns the exit code. It is separate from main so deferred
// cleanup, including the manifest restore, finishes before os.Exit.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *oerrors.ExitError
		if errors.As(err, &exitErr) {
			// Only print if the command layer hasn't already printed it
			if !exitErr.Printed {
				fmt.Fprintln(os.Stderr, "Error: "+err.Error())
			}
			return exitErr.Code
		}
		// Non-ExitError: cobra flag and argument errors end up here.
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		return cmd.ExitCodeFromError(err)
	}
	return cmd.ExitSuccess
}
