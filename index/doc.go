// Package index provides MetadataSource implementations backed by a
// package index: an HTTP client for a JSON index API and a file source for
// offline TOML snapshots.
//
// The HTTP layout is one document per package:
//
//	{base}/{name}/index.json
//
// holding every published release with its declared requirements, extras
// and artifact digests. Both sources normalize package names before lookup.
package index
