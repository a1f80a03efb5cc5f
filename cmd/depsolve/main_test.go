package main

import (
	"errors"
	"fmt"
	"testing"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/lockfile"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", &depsolve.ConflictError{Package: "alpha"}, 2},
		{"wrapped conflict", fmt.Errorf("resolve: %w", &depsolve.ConflictError{Package: "alpha"}), 2},
		{"integrity mismatch", fmt.Errorf("parse: %w", lockfile.ErrIntegrityMismatch), 3},
		{"unverified artifact", fmt.Errorf("verify: %w", lockfile.ErrUnverifiedArtifact), 4},
		{"anything else", errors.New("boom"), 1},
		{"unknown package", &depsolve.UnknownPackageError{Name: "x", RequiredBy: "<direct>"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRunUsageError(t *testing.T) {
	if got := run([]string{"no-such-command"}); got == 0 {
		t.Error("unknown command exited 0")
	}
}
