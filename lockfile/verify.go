package lockfile

import (
	"fmt"
)

// VerifyBytes checks artifact content against an expected prefixed digest.
// The algorithm declared in the digest prefix selects the hash function.
// A mismatch returns an error wrapping ErrIntegrityMismatch and is always
// fatal.
func VerifyBytes(data []byte, expectedDigest string) error {
	algorithm, _, err := SplitDigest(expectedDigest)
	if err != nil {
		return &MalformedDocumentError{Reason: "expected digest", Err: err}
	}
	got, err := ComputeDigest(algorithm, data)
	if err != nil {
		return err
	}
	if got != expectedDigest {
		return fmt.Errorf("artifact digest %s, locked digest %s: %w", got, expectedDigest, ErrIntegrityMismatch)
	}
	return nil
}

// VerifyArtifact checks fetched artifact content against the digest locked
// for the named file in the entry.
//
// Verification fails closed: when the entry carries no digest for the file,
// the result wraps ErrUnverifiedArtifact and installation must not proceed.
func VerifyArtifact(entry Entry, file string, data []byte) error {
	for _, a := range entry.Artifacts {
		if a.File == file {
			if err := VerifyBytes(data, a.Digest); err != nil {
				return fmt.Errorf("package %s@%s file %s: %w", entry.Name, entry.Version, file, err)
			}
			return nil
		}
	}
	return fmt.Errorf("package %s@%s has no locked digest for %s: %w",
		entry.Name, entry.Version, file, ErrUnverifiedArtifact)
}

// ArtifactFetcher retrieves raw artifact bytes for verification. Implemented
// by the install-time collaborator; the core never downloads anything itself.
type ArtifactFetcher interface {
	// Fetch returns the raw bytes of the named artifact file for a package.
	Fetch(name, version, file string) ([]byte, error)
}

// VerifyAll fetches and verifies every artifact of every entry in the
// document. It stops at the first failure: a fetch error, a digest mismatch
// (ErrIntegrityMismatch), or an entry without any artifact digest
// (ErrUnverifiedArtifact).
func VerifyAll(doc *Document, fetcher ArtifactFetcher) error {
	for _, entry := range doc.Packages {
		if len(entry.Artifacts) == 0 {
			return fmt.Errorf("package %s@%s has no locked artifacts: %w",
				entry.Name, entry.Version, ErrUnverifiedArtifact)
		}
		for _, a := range entry.Artifacts {
			data, err := fetcher.Fetch(entry.Name, entry.Version, a.File)
			if err != nil {
				return fmt.Errorf("fetch %s for %s@%s: %w", a.File, entry.Name, entry.Version, err)
			}
			if err := VerifyArtifact(entry, a.File, data); err != nil {
				return err
			}
		}
	}
	return nil
}
