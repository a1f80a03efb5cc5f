package lockfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// wire types mirror the TOML layout for decoding.
type wireDocument struct {
	Metadata wireMetadata  `toml:"metadata"`
	Packages []wirePackage `toml:"package"`
}

type wireMetadata struct {
	LockVersion  string   `toml:"lock-version"`
	Requires     string   `toml:"requires"`
	Requirements []string `toml:"requirements"`
	ContentHash  string   `toml:"content-hash"`
}

type wirePackage struct {
	Name      string         `toml:"name"`
	Version   string         `toml:"version"`
	Extras    []string       `toml:"extras"`
	Artifacts []wireArtifact `toml:"artifacts"`
}

type wireArtifact struct {
	File   string `toml:"file"`
	Digest string `toml:"digest"`
}

// ReadFile reads and parses a lock document from path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lock document: %w", err)
	}
	return Parse(data)
}

// Parse parses lock document bytes.
//
// It returns a *MalformedDocumentError for structural violations (syntax,
// missing fields, duplicate package names, bad digest syntax) and an error
// wrapping ErrIntegrityMismatch when the stored content-hash does not match
// the hash recomputed over the document's own entries.
func Parse(data []byte) (*Document, error) {
	var wire wireDocument
	if err := toml.Unmarshal(data, &wire); err != nil {
		return nil, &MalformedDocumentError{Reason: "invalid TOML", Err: err}
	}

	doc := &Document{
		Metadata: Metadata{
			LockVersion:  wire.Metadata.LockVersion,
			Requires:     wire.Metadata.Requires,
			Requirements: wire.Metadata.Requirements,
			ContentHash:  wire.Metadata.ContentHash,
		},
	}

	if err := validateMetadata(doc.Metadata); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(wire.Packages))
	for _, p := range wire.Packages {
		entry, err := validatePackage(p)
		if err != nil {
			return nil, err
		}
		key := entry.NormalizedName()
		if prev, dup := seen[key]; dup {
			return nil, &MalformedDocumentError{
				Reason: fmt.Sprintf("duplicate package name: %q and %q both normalize to %q", prev, p.Name, key),
			}
		}
		seen[key] = p.Name
		doc.Packages = append(doc.Packages, entry)
	}
	doc.sortEntries()

	if got := doc.computeContentHash(); got != doc.Metadata.ContentHash {
		return nil, fmt.Errorf("content-hash %s does not match recomputed %s: %w",
			doc.Metadata.ContentHash, got, ErrIntegrityMismatch)
	}

	return doc, nil
}

func validateMetadata(m Metadata) error {
	if m.LockVersion == "" {
		return &MalformedDocumentError{Reason: "metadata missing lock-version"}
	}
	major, _, _ := strings.Cut(m.LockVersion, ".")
	currentMajor, _, _ := strings.Cut(CurrentVersion, ".")
	if major != currentMajor {
		return &MalformedDocumentError{
			Reason: fmt.Sprintf("unsupported lock-version %q (supported: %s.x)", m.LockVersion, currentMajor),
		}
	}
	if m.ContentHash == "" {
		return &MalformedDocumentError{Reason: "metadata missing content-hash"}
	}
	if !ValidDigest(m.ContentHash) {
		return &MalformedDocumentError{Reason: fmt.Sprintf("content-hash %q is not a valid digest", m.ContentHash)}
	}
	return nil
}

func validatePackage(p wirePackage) (Entry, error) {
	if p.Name == "" {
		return Entry{}, &MalformedDocumentError{Reason: "package entry missing name"}
	}
	if p.Version == "" {
		return Entry{}, &MalformedDocumentError{Reason: fmt.Sprintf("package %q missing version", p.Name)}
	}

	entry := Entry{
		Name:    p.Name,
		Version: p.Version,
		Extras:  sortedStrings(p.Extras),
	}

	for _, a := range p.Artifacts {
		if a.File == "" {
			return Entry{}, &MalformedDocumentError{Reason: fmt.Sprintf("package %q artifact missing file", p.Name)}
		}
		if _, _, err := SplitDigest(a.Digest); err != nil {
			return Entry{}, &MalformedDocumentError{
				Reason: fmt.Sprintf("package %q artifact %q", p.Name, a.File),
				Err:    err,
			}
		}
		entry.Artifacts = append(entry.Artifacts, Artifact{File: a.File, Digest: a.Digest})
	}

	return entry, nil
}
