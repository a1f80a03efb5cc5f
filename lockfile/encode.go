package lockfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// lockfilePermissions is the file mode for written lock documents.
const lockfilePermissions = 0o644

// header is written at the top of every generated document.
const header = "# This file is generated by depsolve and must not be edited by hand.\n"

// Marshal serializes the document in canonical form: fixed key order,
// packages sorted by normalized name, artifacts by file name. Equivalent
// documents always marshal to identical bytes.
//
// The content-hash is recomputed during marshaling, so a stale hash on the
// receiver never survives a write.
func (d *Document) Marshal() ([]byte, error) {
	for _, e := range d.Packages {
		if e.Name == "" {
			return nil, &MalformedDocumentError{Reason: "package entry missing name"}
		}
		if e.Version == "" {
			return nil, &MalformedDocumentError{Reason: fmt.Sprintf("package %q missing version", e.Name)}
		}
		for _, a := range e.Artifacts {
			if !ValidDigest(a.Digest) {
				return nil, &MalformedDocumentError{
					Reason: fmt.Sprintf("package %q artifact %q has invalid digest %q", e.Name, a.File, a.Digest),
				}
			}
		}
	}

	d.Metadata.ContentHash = d.computeContentHash()

	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteByte('\n')
	d.writeMetadata(&buf)
	for _, e := range d.sortedEntries() {
		buf.WriteByte('\n')
		writeEntry(&buf, e)
	}
	return buf.Bytes(), nil
}

// computeContentHash digests the canonical serialization of the declared
// requirements and all package entries. The metadata block itself is not
// part of the digested content, so the hash can be recomputed from a parsed
// document and compared against the stored value.
func (d *Document) computeContentHash() string {
	var buf bytes.Buffer

	reqs := append([]string(nil), d.Metadata.Requirements...)
	sort.Strings(reqs)
	for _, r := range reqs {
		buf.WriteString("requirement ")
		buf.WriteString(r)
		buf.WriteByte('\n')
	}
	buf.WriteString("requires ")
	buf.WriteString(d.Metadata.Requires)
	buf.WriteByte('\n')

	for _, e := range d.sortedEntries() {
		writeEntry(&buf, e)
	}

	return SHA256Digest(buf.Bytes())
}

func (d *Document) sortedEntries() []Entry {
	entries := make([]Entry, len(d.Packages))
	copy(entries, d.Packages)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].NormalizedName() < entries[j].NormalizedName()
	})
	for i := range entries {
		entries[i].Extras = sortedStrings(entries[i].Extras)
		artifacts := make([]Artifact, len(entries[i].Artifacts))
		copy(artifacts, entries[i].Artifacts)
		sort.Slice(artifacts, func(a, b int) bool {
			return artifacts[a].File < artifacts[b].File
		})
		entries[i].Artifacts = artifacts
	}
	return entries
}

func (d *Document) writeMetadata(buf *bytes.Buffer) {
	buf.WriteString("[metadata]\n")
	fmt.Fprintf(buf, "lock-version = %s\n", tomlString(d.Metadata.LockVersion))
	if d.Metadata.Requires != "" {
		fmt.Fprintf(buf, "requires = %s\n", tomlString(d.Metadata.Requires))
	}
	writeStringArray(buf, "requirements", sortedStrings(d.Metadata.Requirements))
	fmt.Fprintf(buf, "content-hash = %s\n", tomlString(d.Metadata.ContentHash))
}

func writeEntry(buf *bytes.Buffer, e Entry) {
	buf.WriteString("[[package]]\n")
	fmt.Fprintf(buf, "name = %s\n", tomlString(e.Name))
	fmt.Fprintf(buf, "version = %s\n", tomlString(e.Version))
	if len(e.Extras) > 0 {
		writeStringArray(buf, "extras", e.Extras)
	}
	for _, a := range e.Artifacts {
		buf.WriteString("\n[[package.artifacts]]\n")
		fmt.Fprintf(buf, "file = %s\n", tomlString(a.File))
		fmt.Fprintf(buf, "digest = %s\n", tomlString(a.Digest))
	}
}

func writeStringArray(buf *bytes.Buffer, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(buf, "%s = []\n", key)
		return
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = tomlString(v)
	}
	fmt.Fprintf(buf, "%s = [%s]\n", key, strings.Join(quoted, ", "))
}

// tomlString renders a basic TOML string. Lock content is plain
// (names, versions, digests, requirement strings), so escaping quotes and
// backslashes covers the value space.
func tomlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func sortedStrings(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

// WriteFile marshals the document and writes it to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, lockfilePermissions)
}

// WriteTo marshals the document and writes it to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Exists reports whether a lock document exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultPath returns the default lock document path under a project root.
func DefaultPath(projectRoot string) string {
	if projectRoot == "" {
		return "depsolve.lock"
	}
	return projectRoot + "/depsolve.lock"
}
