package depsolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/depsolve/go-depsolve/version"
)

// Sentinel errors for metadata lookup failures.
var (
	// ErrPackageNotFound indicates the metadata source knows no package by
	// the requested name. Metadata sources return it (possibly wrapped) so
	// the resolver can distinguish "unknown package" from transport failure.
	ErrPackageNotFound = errors.New("package not found")

	// ErrVersionNotFound indicates the metadata source has the package but
	// not the requested version.
	ErrVersionNotFound = errors.New("version not found")
)

// UnknownPackageError is returned when a referenced package has no
// candidates at all: the metadata source reports no such name.
type UnknownPackageError struct {
	// Name is the normalized package name.
	Name string

	// RequiredBy identifies the requirement origin that referenced the
	// package ("<direct>" or "name@version").
	RequiredBy string

	// Err is the underlying source error, if any.
	Err error
}

func (e *UnknownPackageError) Error() string {
	msg := fmt.Sprintf("unknown package %q required by %s", e.Name, e.RequiredBy)
	if e.Err != nil && !errors.Is(e.Err, ErrPackageNotFound) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnknownPackageError) Unwrap() error {
	return e.Err
}

// NoMatchingVersionError is returned when a package exists but none of its
// published versions satisfies the combined constraint.
type NoMatchingVersionError struct {
	// Name is the normalized package name.
	Name string

	// Constraint is the combined range no version satisfied.
	Constraint version.Range

	// Available is the number of published versions considered.
	Available int
}

func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf("no version of %q matches %s (%d published versions)",
		e.Name, e.Constraint, e.Available)
}

// FetchError wraps a metadata fetch failure that terminated resolution: the
// probe failed and the package was still required by an active constraint.
// Timeouts surface here wrapping context.DeadlineExceeded.
type FetchError struct {
	// Name is the package whose metadata fetch failed.
	Name string

	// Err is the collaborator's error.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch metadata for %q: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ConflictError is returned when the search space is exhausted with no
// consistent assignment. It carries the minimal set of requirements whose
// ranges have an empty intersection, reconstructed from the propagation
// trail that emptied the failing package's admissible range.
type ConflictError struct {
	// Package is the package whose admissible range became empty.
	Package string

	// Conflicts is the minimal conflicting requirement set. Removing any
	// one member leaves a satisfiable intersection.
	Conflicts []Requirement
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("version conflict on %q", e.Package)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "version conflict on %q: %d requirements cannot be satisfied together:", e.Package, len(e.Conflicts))
	for _, req := range e.Conflicts {
		sb.WriteString("\n  - ")
		sb.WriteString(req.Name)
		if !req.Range.IsAny() {
			sb.WriteByte(' ')
			sb.WriteString(req.Range.String())
		}
		sb.WriteString(" (required by ")
		sb.WriteString(req.Origin)
		sb.WriteByte(')')
	}
	return sb.String()
}
