// Package main is the entry point for the depsolve command line tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/cmd/depsolve/commands"
	"github.com/depsolve/go-depsolve/lockfile"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	cli.SetArgs(args)

	if err := cli.Execute(ctx); err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return exitCode(err)
	}
	return 0
}

// exitCode maps failure categories to distinct process exit codes so
// callers can script against them.
func exitCode(err error) int {
	var conflict *depsolve.ConflictError
	switch {
	case errors.As(err, &conflict):
		return 2
	case errors.Is(err, lockfile.ErrIntegrityMismatch):
		return 3
	case errors.Is(err, lockfile.ErrUnverifiedArtifact):
		return 4
	}
	return 1
}
