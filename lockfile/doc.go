// Package lockfile reads, writes, and verifies the lock document that
// records a completed dependency resolution.
//
// The lock document pins the exact version and artifact digests of every
// resolved package, ensuring reproducible installs across machines and time.
// It is a sectioned, human-diffable TOML document with one record per
// package and a document-level metadata block.
//
// # Document Structure
//
// A lock document contains:
//   - [metadata]: lock format version, the environment constraint range the
//     resolution considered, the declared root requirements, and a
//     content-hash binding the document to those inputs
//   - [[package]]: one entry per resolved package with its exact version,
//     declared extras, and one or more artifact digests
//
// # Determinism
//
// Encoding is canonical: packages sort by normalized name, artifacts by file
// name, and key order is fixed. Two equivalent resolutions always produce
// byte-identical documents, which is what makes the content-hash meaningful.
//
// # Usage
//
// Read an existing lock document:
//
//	doc, err := lockfile.ReadFile("depsolve.lock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Write a document:
//
//	if err := doc.WriteFile("depsolve.lock"); err != nil {
//	    log.Fatal(err)
//	}
//
// A document is never patched field-by-field: it is regenerated by
// re-running resolution, which keeps the content-hash valid.
package lockfile
