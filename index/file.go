package index

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/version"
)

// FileSource serves package metadata from an offline index snapshot: a
// single TOML file holding project documents keyed by name.
//
//	[packages.alpha]
//	name = "alpha"
//	[packages.alpha.releases."1.0.0"]
//	requirements = ["beta >=1.0"]
//	[[packages.alpha.releases."1.0.0".artifacts]]
//	file = "alpha-1.0.0.tar.gz"
//	digest = "sha256:..."
//
// It implements depsolve.MetadataSource and is read-only after load.
type FileSource struct {
	packages map[string]*Project
}

var _ depsolve.MetadataSource = (*FileSource)(nil)

type snapshotDocument struct {
	Packages map[string]Project `toml:"packages"`
}

// LoadFileSource reads an index snapshot from disk.
func LoadFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index snapshot: %w", err)
	}
	s, err := ParseFileSource(data)
	if err != nil {
		return nil, fmt.Errorf("parse index snapshot %s: %w", path, err)
	}
	return s, nil
}

// ParseFileSource parses index snapshot content.
func ParseFileSource(data []byte) (*FileSource, error) {
	var doc snapshotDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid index snapshot: %w", err)
	}

	packages := make(map[string]*Project, len(doc.Packages))
	for key := range doc.Packages {
		p := doc.Packages[key]
		name := p.Name
		if name == "" {
			name = key
		}
		packages[depsolve.NormalizeName(name)] = &p
	}
	return &FileSource{packages: packages}, nil
}

// Len returns the number of packages in the snapshot.
func (s *FileSource) Len() int {
	return len(s.packages)
}

// Versions returns every version of the named package in the snapshot.
func (s *FileSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	p, ok := s.packages[depsolve.NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", name, depsolve.ErrPackageNotFound)
	}
	return p.versions()
}

// Release returns the snapshot candidate for one version.
func (s *FileSource) Release(ctx context.Context, name string, v version.Version) (*depsolve.Candidate, error) {
	p, ok := s.packages[depsolve.NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", name, depsolve.ErrPackageNotFound)
	}
	return p.candidate(depsolve.NormalizeName(name), v)
}
