package lockfile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/depsolve/go-depsolve/internal/pkgname"
)

// CurrentVersion is the lock format version this package writes.
// Parsing accepts any document whose major version matches.
const CurrentVersion = "1.0"

// Sentinel errors for document verification failures.
var (
	// ErrIntegrityMismatch indicates a digest does not match recomputed
	// content: either the document-level content-hash or an artifact digest.
	// Always fatal; a mismatched hash is never accepted.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrUnverifiedArtifact indicates no digest exists for an artifact that
	// verification requires. Verification fails closed rather than skipping
	// the check.
	ErrUnverifiedArtifact = errors.New("unverified artifact")
)

// MalformedDocumentError reports a structural violation in a lock document:
// unparseable syntax, a missing required field, a duplicate package name, or
// a digest that does not follow the "algo:hex" form.
type MalformedDocumentError struct {
	// Reason describes the violation.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed lock document: %s: %v", e.Reason, e.Err)
	}
	return "malformed lock document: " + e.Reason
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// Document is a parsed or generated lock document.
type Document struct {
	// Metadata is the document-level metadata block.
	Metadata Metadata

	// Packages holds one entry per resolved package, kept sorted by
	// normalized name.
	Packages []Entry
}

// Metadata is the document-level metadata block.
type Metadata struct {
	// LockVersion is the lock format version, e.g. "1.0".
	LockVersion string

	// Requires is the environment constraint range the resolution
	// considered, e.g. ">=3.9,<4.0". Empty means unconstrained.
	Requires string

	// Requirements are the declared root requirements the document was
	// generated from, in canonical form. Together with the package entries
	// they are the input to ContentHash.
	Requirements []string

	// ContentHash binds the document to its entries and originating
	// requirement set: "sha256:" + hex digest over the canonical
	// serialization. Recomputed and checked on parse.
	ContentHash string
}

// Entry is one resolved package row.
type Entry struct {
	// Name is the package name as published.
	Name string

	// Version is the exact resolved version.
	Version string

	// Extras are the declared extras whose optional dependencies the
	// resolution activated for this package. Sorted.
	Extras []string

	// Artifacts are the content digests of this package's installable
	// artifacts, one per variant, sorted by file name.
	Artifacts []Artifact
}

// NormalizedName returns the entry's name in canonical form.
func (e Entry) NormalizedName() string {
	return pkgname.Normalize(e.Name)
}

// Artifact identifies one installable file and its content digest.
type Artifact struct {
	// File is the artifact file name, which carries the variant tag
	// (platform/runtime compatibility) by convention.
	File string

	// Digest is the content digest with algorithm prefix, e.g.
	// "sha256:9f86d0...".
	Digest string
}

// New creates an empty document at the current format version.
func New() *Document {
	return &Document{
		Metadata: Metadata{LockVersion: CurrentVersion},
	}
}

// Package returns the entry for the given package name (normalized
// comparison) or false when absent.
func (d *Document) Package(name string) (Entry, bool) {
	want := pkgname.Normalize(name)
	for _, e := range d.Packages {
		if e.NormalizedName() == want {
			return e, true
		}
	}
	return Entry{}, false
}

// Add inserts or replaces the entry for its package, keeping entries sorted
// by normalized name.
func (d *Document) Add(entry Entry) {
	want := entry.NormalizedName()
	for i, e := range d.Packages {
		if e.NormalizedName() == want {
			d.Packages[i] = entry
			d.sortEntries()
			return
		}
	}
	d.Packages = append(d.Packages, entry)
	d.sortEntries()
}

func (d *Document) sortEntries() {
	sort.Slice(d.Packages, func(i, j int) bool {
		return d.Packages[i].NormalizedName() < d.Packages[j].NormalizedName()
	})
}
